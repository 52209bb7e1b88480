package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"page=3", 3},
		{"page=abc", 10},
		{"page=0", 10},
		{"page=-2", 10},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/api/projects?"+tt.query, nil)
		assert.Equal(t, tt.want, QueryInt(c, "page", 10), tt.query)
	}
}

func TestGetProjectID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetProjectID(c)
	assert.Error(t, err)

	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, err := GetProjectID(c)
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestCookieDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"example.com", "example.com"},
		{"https://www.example.com/", "example.com"},
		{"http://app.example.com:8080/path", "app.example.com"},
		{"WWW.Example.com", "Example.com"},
	}

	for _, tt := range tests {
		got, err := CookieDomain(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := CookieDomain("https://")
	assert.Error(t, err)
}
