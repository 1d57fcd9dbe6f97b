package natskv

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/CareerForge/internal/port/cache/cachetest"
)

var validKey = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

func TestEncodeKey(t *testing.T) {
	for _, k := range []string{"roadmap:auth0|123:abc", "roadmaps:user@example.com", "insight:tech software"} {
		if enc := encodeKey(k); !validKey.MatchString(enc) {
			t.Errorf("encodeKey(%q) = %q is not a valid NATS key", k, enc)
		}
	}
	if encodeKey("a:b") == encodeKey("a.b") {
		t.Error("distinct keys must not collide")
	}
}

func TestCacheCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}
	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Open(context.Background(), js, "careerforge-test-cache", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	cachetest.Run(t, c)
}
