package spaces_test

import (
	"testing"

	"github.com/ibooker/imgloader/internal/fetch/spaces"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		URL         string
		Bucket      string
		Key         string
		ShouldError bool
	}{
		{"s3://images/1.jpg", "images", "1.jpg", false},
		{"s3://images/nested/path/1.jpg", "images", "nested/path/1.jpg", false},
		{"s3://images/", "", "", true},
		{"s3:///1.jpg", "", "", true},
		{"http://images/1.jpg", "", "", true},
	}

	for _, test := range tests {
		bucket, key, err := spaces.ParseURL(test.URL)
		if test.ShouldError {
			if err == nil {
				t.Errorf("%s: expected error", test.URL)
			}
			continue
		}

		if err != nil {
			t.Errorf("%s: %s", test.URL, err)
			continue
		}

		if bucket != test.Bucket || key != test.Key {
			t.Errorf("%s: wrong bucket/key %s %s", test.URL, bucket, key)
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := spaces.New("https://example.digitaloceanspaces.com", "", "access", "secret", false); err != nil {
		t.Fatal(err)
	}
}
