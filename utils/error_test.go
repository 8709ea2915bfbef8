package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandlerUsesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	reqLogger := zap.New(core).With(zap.String("request", "r-1"))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("logger", reqLogger)
		c.Next()
	})
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("kaput") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Message != "Internal Server Error" {
		t.Errorf("body = %s (%v)", w.Body.String(), err)
	}

	entries := logs.FilterMessage("Unhandled panic").All()
	if len(entries) != 1 {
		t.Fatalf("panic log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request"]; got != "r-1" {
		t.Errorf("panic logged without request fields: %v", entries[0].ContextMap())
	}
}
