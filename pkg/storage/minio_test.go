package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_GetPublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		key  string
		want string
	}{
		{
			name: "endpoint over http",
			cfg:  Config{Endpoint: "localhost:9000", Bucket: "media"},
			key:  "chat/2026/01/02/a.png",
			want: "http://localhost:9000/media/chat/2026/01/02/a.png",
		},
		{
			name: "endpoint over https",
			cfg:  Config{Endpoint: "s3.test", Bucket: "media", UseSSL: true},
			key:  "/a.png",
			want: "https://s3.test/media/a.png",
		},
		{
			name: "public url wins",
			cfg:  Config{Endpoint: "minio:9000", PublicURL: "https://cdn.test/", Bucket: "media"},
			key:  "a.png",
			want: "https://cdn.test/media/a.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMinIOStorage(nil, tt.cfg)
			assert.Equal(t, tt.want, s.GetPublicURL(tt.key))
		})
	}
}
