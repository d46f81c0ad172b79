package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestBusinessMiddleware_HeaderExtraction(t *testing.T) {
	tests := []struct {
		name           string
		businessID     string
		expectedStatus int
	}{
		{
			name:           "valid business ID in header",
			businessID:     uuid.New().String(),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing business ID",
			businessID:     "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid business ID format",
			businessID:     "invalid-uuid",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(BusinessMiddleware())

			var capturedBusinessID string
			router.GET("/test", func(c *gin.Context) {
				capturedBusinessID = GetBusinessID(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.businessID != "" {
				req.Header.Set(BusinessHeaderKey, tt.businessID)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.businessID, capturedBusinessID)
			}
		})
	}
}

func TestBusinessMiddleware_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(BusinessMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// No header on a skipped path should still pass
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalBusinessMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(OptionalBusinessMiddleware())

	var capturedBusinessID string
	router.GET("/test", func(c *gin.Context) {
		capturedBusinessID = GetBusinessID(c)
		c.Status(http.StatusOK)
	})

	// Missing header is allowed
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, capturedBusinessID)
}

func TestGetBusinessUUID(t *testing.T) {
	businessID := uuid.New()

	router := gin.New()
	router.Use(BusinessMiddleware())

	var captured uuid.UUID
	router.GET("/test", func(c *gin.Context) {
		var err error
		captured, err = GetBusinessUUID(c)
		require.NoError(t, err)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(BusinessHeaderKey, businessID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, businessID, captured)
}

func TestMustGetBusinessUUID_PanicsWithoutScope(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	assert.Panics(t, func() {
		MustGetBusinessUUID(c)
	})
}
