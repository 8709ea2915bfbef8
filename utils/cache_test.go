package utils

import (
	"context"
	"testing"

	"roomsync/config"

	"github.com/alicebob/miniredis/v2"
)

func TestInitSessionCache(t *testing.T) {
	saved := config.AppConfig
	t.Cleanup(func() { config.AppConfig = saved })

	config.AppConfig.RedisAddr = ""
	client, err := InitSessionCache()
	if client != nil || err != nil {
		t.Fatalf("without address = %v, %v; want nil, nil", client, err)
	}

	mr := miniredis.RunT(t)
	config.AppConfig.RedisAddr = mr.Addr()
	client, err = InitSessionCache()
	if err != nil {
		t.Fatalf("InitSessionCache: %v", err)
	}
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Errorf("ping: %v", err)
	}

	mr.Close()
	if _, err := InitSessionCache(); err == nil {
		t.Error("InitSessionCache succeeded against a stopped server")
	}
}
