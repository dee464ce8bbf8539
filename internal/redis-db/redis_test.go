package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		wantErr  bool
	}{
		{
			name: "simple docker style",
			url:  "redis:6379",
			addr: "redis:6379",
		},
		{
			name:     "redis url with password",
			url:      "redis://:password123@localhost:6379",
			addr:     "localhost:6379",
			password: "password123",
		},
		{
			name:     "host with credentials and no scheme",
			url:      "user:secret@cache.internal:6380",
			addr:     "cache.internal:6380",
			password: "secret",
		},
		{
			name:    "empty",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
		})
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedisClient(mr.Addr())
	require.NoError(t, err)
	defer r.Close()

	assert.NoError(t, r.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	assert.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, mr.Addr(), r.Options().Addr)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(addr)
	assert.Error(t, err)
}
