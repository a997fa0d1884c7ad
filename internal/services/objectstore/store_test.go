package objectstore

import (
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestUploadDownloadRoundTrip tests that uploaded content reads back intact.
func TestUploadDownloadRoundTrip(t *testing.T) {
	store := New()
	blob := store.Bucket("b1").Blob("f.txt")

	if blob.Exists() {
		t.Error("blob should not exist before upload")
	}

	blob.UploadString("hello", &UploadOptions{ContentType: "text/plain"})

	if !blob.Exists() {
		t.Error("blob should exist after upload")
	}
	if got := blob.DownloadText(); got != "hello" {
		t.Errorf("expected content %q, got %q", "hello", got)
	}
	if got := blob.Size(); got != 5 {
		t.Errorf("expected size 5, got %d", got)
	}
	if got := blob.ContentType(); got != "text/plain" {
		t.Errorf("expected content type text/plain, got %q", got)
	}
	if blob.Updated().IsZero() {
		t.Error("updated timestamp should be set after upload")
	}
}

func TestUploadFromReader(t *testing.T) {
	store := New()
	blob := store.Bucket("b1").Blob("r.txt")

	if err := blob.Upload(strings.NewReader("stream content"), nil); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got := blob.DownloadText(); got != "stream content" {
		t.Errorf("expected %q, got %q", "stream content", got)
	}
}

func TestUploadReplacesContent(t *testing.T) {
	store := New()
	blob := store.Bucket("b1").Blob("f.txt")

	blob.UploadString("first", nil)
	blob.UploadString("second, longer", nil)

	if got := blob.DownloadText(); got != "second, longer" {
		t.Errorf("expected replaced content, got %q", got)
	}
	if got := blob.Size(); got != int64(len("second, longer")) {
		t.Errorf("size not recomputed: got %d", got)
	}
}

// TestDeleteRemovesPresence tests that a deleted blob reports absent and
// disappears from listings.
func TestDeleteRemovesPresence(t *testing.T) {
	store := New()
	bucket := store.Bucket("b1")
	blob := bucket.Blob("f.txt")
	blob.UploadString("data", nil)

	if existed := blob.Delete(); !existed {
		t.Error("delete should report the blob existed")
	}
	if blob.Exists() {
		t.Error("blob should not exist after delete")
	}
	for _, entry := range bucket.ListBlobs(ListQuery{}) {
		if entry.Name == "f.txt" {
			t.Error("deleted blob still shows up in listing")
		}
	}

	// Deleting again is a no-op, not an error.
	if existed := blob.Delete(); existed {
		t.Error("second delete should report the blob was absent")
	}
}

func TestBlobReferenceWithoutUploadIsInvisible(t *testing.T) {
	store := New()
	bucket := store.Bucket("b1")
	bucket.Blob("ghost.txt")
	bucket.Blob("real.txt").UploadString("x", nil)

	entries := bucket.ListBlobs(ListQuery{})
	if len(entries) != 1 || entries[0].Name != "real.txt" {
		t.Errorf("expected only real.txt in listing, got %v", entryNames(entries))
	}
	if got := bucket.Blob("ghost.txt").DownloadBytes(); got != nil {
		t.Errorf("never-uploaded blob should download nil, got %q", got)
	}
}

func TestStrictVsAutoCreate(t *testing.T) {
	// Default: auto-create.
	store := New()
	bucket, err := store.GetBucket("absent")
	if err != nil {
		t.Fatalf("non-strict GetBucket should auto-create, got error: %v", err)
	}
	if bucket.Name() != "absent" {
		t.Errorf("unexpected bucket name %q", bucket.Name())
	}

	// Strict: not found.
	strict := New(WithStrict())
	if _, err := strict.GetBucket("absent"); !IsNotFound(err) {
		t.Errorf("strict GetBucket should return NotFoundError, got %v", err)
	}
	// Bucket still always succeeds.
	if b := strict.Bucket("absent"); b == nil {
		t.Fatal("Bucket should always succeed")
	}
	if _, err := strict.GetBucket("absent"); err != nil {
		t.Errorf("bucket should be found after explicit creation, got %v", err)
	}
}

func TestDeleteBucket(t *testing.T) {
	store := New()
	store.Bucket("b1").Blob("f.txt").UploadString("x", nil)

	if err := store.DeleteBucket("b1"); err != nil {
		t.Fatalf("delete bucket: %v", err)
	}
	if err := store.DeleteBucket("b1"); !IsNotFound(err) {
		t.Errorf("deleting missing bucket should be NotFoundError, got %v", err)
	}
	if got := store.BucketNames(); len(got) != 0 {
		t.Errorf("expected no buckets, got %v", got)
	}
}

// TestListBlobsPartition tests that with a delimiter every matching blob is
// either returned directly or folded into exactly one common prefix, never
// both.
func TestListBlobsPartition(t *testing.T) {
	tests := []struct {
		name         string
		blobs        []string
		query        ListQuery
		wantBlobs    []string
		wantPrefixes []string
	}{
		{
			name:      "no delimiter returns all matches",
			blobs:     []string{"a/x", "a/y", "b/z"},
			query:     ListQuery{Prefix: "a/"},
			wantBlobs: []string{"a/x", "a/y"},
		},
		{
			name:      "delimiter with leaf names",
			blobs:     []string{"a/x", "a/y", "b/z"},
			query:     ListQuery{Prefix: "a/", Delimiter: "/"},
			wantBlobs: []string{"a/x", "a/y"},
		},
		{
			name:         "delimiter folds nested names",
			blobs:        []string{"a/deep/x", "a/deep/y", "a/deeper/z"},
			query:        ListQuery{Prefix: "a/", Delimiter: "/"},
			wantPrefixes: []string{"a/deep/", "a/deeper/"},
		},
		{
			name:         "root listing with folder marker",
			blobs:        []string{"logs/2023/a.txt", "logs/2023/b.txt", "readme.txt"},
			query:        ListQuery{Delimiter: "/"},
			wantBlobs:    []string{"readme.txt"},
			wantPrefixes: []string{"logs/"},
		},
		{
			name:         "mixed direct and folded",
			blobs:        []string{"a/x", "a/sub/y", "a/sub/z"},
			query:        ListQuery{Prefix: "a/", Delimiter: "/"},
			wantBlobs:    []string{"a/x"},
			wantPrefixes: []string{"a/sub/"},
		},
		{
			name:  "prefix matches nothing",
			blobs: []string{"a/x"},
			query: ListQuery{Prefix: "zzz/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New()
			bucket := store.Bucket("b")
			for _, name := range tt.blobs {
				bucket.Blob(name).UploadString("data", nil)
			}

			var gotBlobs, gotPrefixes []string
			for _, entry := range bucket.ListBlobs(tt.query) {
				if entry.IsPrefix() {
					gotPrefixes = append(gotPrefixes, entry.Name)
				} else {
					gotBlobs = append(gotBlobs, entry.Name)
				}
			}

			if diff := cmp.Diff(tt.wantBlobs, gotBlobs); diff != "" {
				t.Errorf("direct blobs mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPrefixes, gotPrefixes); diff != "" {
				t.Errorf("prefixes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestListBlobsDeterministic tests that the same query on fixed state yields
// the same result every time.
func TestListBlobsDeterministic(t *testing.T) {
	store := New()
	bucket := store.Bucket("b")
	for _, name := range []string{"d/1", "d/2", "c", "a/b/c", "a/b/d", "e"} {
		bucket.Blob(name).UploadString("x", nil)
	}

	first := entryNames(bucket.ListBlobs(ListQuery{Delimiter: "/"}))
	if !sort.StringsAreSorted(first) {
		t.Errorf("listing should be sorted, got %v", first)
	}
	for i := 0; i < 10; i++ {
		again := entryNames(bucket.ListBlobs(ListQuery{Delimiter: "/"}))
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("listing changed between calls (-first +again):\n%s", diff)
		}
	}
}

// TestConcurrentUploadAndList exercises simultaneous uploads, deletes and
// listings on one bucket, the pattern two overlapping HTTP requests
// produce. It exists to be run under -race.
func TestConcurrentUploadAndList(t *testing.T) {
	store := New()
	bucket := store.Bucket("b")
	bucket.Blob("steady/base.txt").UploadString("base", nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			blob := bucket.Blob("hot/f.txt")
			blob.UploadString("x", nil)
			blob.Delete()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			bucket.ListBlobs(ListQuery{Delimiter: "/"})
		}
	}()
	wg.Wait()

	entries := bucket.ListBlobs(ListQuery{})
	if len(entries) != 1 || entries[0].Name != "steady/base.txt" {
		t.Errorf("expected only the steady blob to remain, got %v", entryNames(entries))
	}
}

func TestBucketMetadata(t *testing.T) {
	store := New()
	bucket := store.Bucket("b")
	bucket.SetMetadata(map[string]string{"env": "test"})

	meta := bucket.Metadata()
	meta["env"] = "mutated"
	if got := bucket.Metadata()["env"]; got != "test" {
		t.Errorf("bucket metadata mutated via caller map: %q", got)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		raw        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{raw: "gs://bucket/path/to/obj", wantBucket: "bucket", wantObject: "path/to/obj"},
		{raw: "gs://bucket", wantBucket: "bucket"},
		{raw: "gs://", wantErr: true},
		{raw: "s3://bucket/obj", wantErr: true},
		{raw: "bucket/obj", wantErr: true},
	}
	for _, tt := range tests {
		bucket, object, err := ParseURL(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURL(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURL(%q): %v", tt.raw, err)
			continue
		}
		if bucket != tt.wantBucket || object != tt.wantObject {
			t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)",
				tt.raw, bucket, object, tt.wantBucket, tt.wantObject)
		}
	}
}

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
