package records

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relstore/internal/device"
	"github.com/roach88/relstore/internal/ir"
	"github.com/roach88/relstore/internal/query"
	"github.com/roach88/relstore/internal/schema"
	"github.com/roach88/relstore/internal/testutil"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *device.Memory) {
	t.Helper()
	dev := device.NewMemory()
	t.Cleanup(func() { dev.Close() })
	return New(dev, testutil.BlogSchemas(), opts...), dev
}

func create(t *testing.T, s *Store, typeName string, attrs Attributes) {
	t.Helper()
	_, err := s.CreateRecord(context.Background(), typeName, attrs)
	require.NoError(t, err)
}

// seedBlog stores post 1 with comments 1 and 2.
func seedBlog(t *testing.T, s *Store) {
	t.Helper()
	create(t, s, "comment", Attributes{"id": ir.IRInt(1), "text": ir.IRString("x")})
	create(t, s, "comment", Attributes{"id": ir.IRInt(2), "text": ir.IRString("y")})
	create(t, s, "post", Attributes{"id": ir.IRInt(1), "title": ir.IRString("A"), "comments": ir.IRArray{ir.IRInt(1), ir.IRInt(2)}})
}

func TestFind_PostWithComments(t *testing.T) {
	s, _ := newTestStore(t)
	seedBlog(t, s)

	got, err := s.Find(context.Background(), "post", "1")
	require.NoError(t, err)

	want := ir.IRObject{
		"id":       ir.IRInt(1),
		"title":    ir.IRString("A"),
		"comments": ir.IRArray{ir.IRInt(1), ir.IRInt(2)},
		ir.EmbeddedKey: ir.IRObject{
			"comments": ir.IRArray{
				ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString("x")},
				ir.IRObject{"id": ir.IRInt(2), "text": ir.IRString("y")},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFind_DeletedCommentIsCompacted(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	require.NoError(t, s.DeleteRecord(ctx, "comment", Attributes{"id": ir.IRInt(2)}))

	got, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{ir.IRInt(1)}, got["comments"])
	assert.Equal(t,
		ir.IRArray{ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString("x")}},
		got[ir.EmbeddedKey].(ir.IRObject)["comments"])

	stored, err := s.FindAll(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, stored[0]["comments"], "reads do not rewrite storage")
}

func TestCreateThenFind_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	attrs := Attributes{
		"id":     ir.IRString("k3x9a"),
		"name":   ir.IRString("ann"),
		"age":    ir.IRInt(41),
		"active": ir.IRBool(true),
		"tags":   ir.IRArray{ir.IRString("a"), ir.IRString("b")},
		"meta":   ir.IRObject{"source": ir.IRString("import")},
		"note":   ir.IRNull{},
	}
	stored, err := s.CreateRecord(ctx, "user", attrs)
	require.NoError(t, err)

	serialized, err := attrs.Serialize(SerializeOptions{IncludeID: true})
	require.NoError(t, err)
	assert.Equal(t, serialized, stored)

	got, err := s.Find(ctx, "user", "k3x9a")
	require.NoError(t, err)
	assert.Equal(t, serialized, got)
}

func TestDeleteThenFind_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	require.NoError(t, s.DeleteRecord(ctx, "post", Attributes{"id": ir.IRInt(1)}))

	_, err := s.Find(ctx, "post", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFind_Missing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Find(context.Background(), "post", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.ResolveCalls())
}

func TestFind_CycleIsOneHop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	create(t, s, "post", Attributes{"id": ir.IRInt(1), "comments": ir.IRArray{ir.IRInt(7)}})
	create(t, s, "comment", Attributes{"id": ir.IRInt(7), "post": ir.IRInt(1)})

	post, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)
	comments := post[ir.EmbeddedKey].(ir.IRObject)["comments"].(ir.IRArray)
	require.Len(t, comments, 1)
	assert.NotContains(t, comments[0].(ir.IRObject), ir.EmbeddedKey)

	comment, err := s.Find(ctx, "comment", "7")
	require.NoError(t, err)
	embeddedPost := comment[ir.EmbeddedKey].(ir.IRObject)["post"].(ir.IRObject)
	assert.NotContains(t, embeddedPost, ir.EmbeddedKey)
	assert.Equal(t, ir.IRArray{ir.IRInt(7)}, embeddedPost["comments"])
}

func TestFind_DanglingReference(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	create(t, s, "comment", Attributes{"id": ir.IRInt(3), "post": ir.IRInt(99), "text": ir.IRString("orphan")})

	got, err := s.Find(ctx, "comment", "3")
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(99), got["post"])
	assert.NotContains(t, got, ir.EmbeddedKey)
}

func TestFindAll_NeverEmbeds(t *testing.T) {
	s, _ := newTestStore(t)
	seedBlog(t, s)

	posts, err := s.FindAll(context.Background(), "post")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.NotContains(t, posts[0], ir.EmbeddedKey)
	assert.Zero(t, s.ResolveCalls())
}

func TestFindAll_IDOrder(t *testing.T) {
	s, _ := newTestStore(t)
	for _, id := range []ir.IRValue{ir.IRInt(10), ir.IRString("b"), ir.IRInt(2), ir.IRString("a")} {
		create(t, s, "profile", Attributes{"id": id})
	}

	all, err := s.FindAll(context.Background(), "profile")
	require.NoError(t, err)
	var ids []ir.IRValue
	for _, r := range all {
		ids = append(ids, r["id"])
	}
	assert.Equal(t, []ir.IRValue{ir.IRInt(2), ir.IRInt(10), ir.IRString("a"), ir.IRString("b")}, ids)
}

func TestFindAll_EmptyType(t *testing.T) {
	s, _ := newTestStore(t)

	all, err := s.FindAll(context.Background(), "post")
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestFindMany(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)
	create(t, s, "comment", Attributes{"id": ir.IRInt(3), "post": ir.IRInt(1)})

	got, err := s.FindMany(ctx, "comment", []string{"3", "missing", "1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ir.IRInt(3), got[0]["id"])
	assert.Equal(t, ir.IRInt(1), got[1]["id"])
	assert.Contains(t, got[0][ir.EmbeddedKey].(ir.IRObject), "post")
}

func TestFindMany_EmptySkipsResolution(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	got, err := s.FindMany(ctx, "post", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.FindMany(ctx, "post", []string{"404"})
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Zero(t, s.ResolveCalls())
}

func TestFindQuery(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)
	create(t, s, "post", Attributes{"id": ir.IRInt(2), "title": ir.IRString("B"), "draft": ir.IRBool(true)})

	got, err := s.FindQuery(ctx, "post", query.Predicate{"title": query.Pattern(regexp.MustCompile(`^A`))})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0][ir.EmbeddedKey].(ir.IRObject)["comments"], 2)

	none, err := s.FindQuery(ctx, "post", query.Predicate{"title": query.Equal(ir.IRString("Z"))})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, int64(1), s.ResolveCalls())
}

func TestFindQuery_Modes(t *testing.T) {
	ctx := context.Background()
	pred := query.Predicate{
		"draft": query.Equal(ir.IRBool(true)),
		"title": query.Pattern(regexp.MustCompile(`.`)),
	}

	all, _ := newTestStore(t)
	seedBlog(t, all)
	create(t, all, "post", Attributes{"id": ir.IRInt(2), "title": ir.IRString("B"), "draft": ir.IRBool(true)})
	got, err := all.FindQuery(ctx, "post", pred)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.IRInt(2), got[0]["id"])

	legacy, _ := newTestStore(t, WithQueryMode(query.ModeLegacy))
	seedBlog(t, legacy)
	create(t, legacy, "post", Attributes{"id": ir.IRInt(2), "title": ir.IRString("B"), "draft": ir.IRBool(true)})
	got, err = legacy.FindQuery(ctx, "post", pred)
	require.NoError(t, err)
	assert.Len(t, got, 2, "only the title pattern gates inclusion")
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	got, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)
	got["title"] = ir.IRString("mutated")
	got["comments"].(ir.IRArray)[0] = ir.IRInt(42)

	again, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("A"), again["title"])
	assert.Equal(t, ir.IRArray{ir.IRInt(1), ir.IRInt(2)}, again["comments"])
}

func TestCreateRecord_StripsEmbedded(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	post, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)
	post["title"] = ir.IRString("A2")

	_, err = s.UpdateRecord(ctx, "post", Attributes(post))
	require.NoError(t, err)

	all, err := s.FindAll(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("A2"), all[0]["title"])
	assert.NotContains(t, all[0], ir.EmbeddedKey)
}

func TestCreateRecord_OverwritesOnCollision(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	create(t, s, "user", Attributes{"id": ir.IRString("u1"), "name": ir.IRString("ann")})
	create(t, s, "user", Attributes{"id": ir.IRString("u1"), "email": ir.IRString("b@example.com")})

	got, err := s.Find(ctx, "user", "u1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"id": ir.IRString("u1"), "email": ir.IRString("b@example.com")}, got)
}

func TestCreateRecord_MissingID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CreateRecord(context.Background(), "post", Attributes{"title": ir.IRString("A")})
	assert.ErrorIs(t, err, ErrMissingID)
}

type rejectingRecord struct{}

func (rejectingRecord) ID() ir.IRValue { return ir.IRInt(1) }
func (rejectingRecord) Serialize(SerializeOptions) (ir.IRObject, error) {
	return nil, errors.New("model is invalid")
}

func TestCreateRecord_SerializationRejected(t *testing.T) {
	ctx := context.Background()
	s, dev := newTestStore(t)

	for _, rec := range []Record{
		rejectingRecord{},
		Attributes{"id": ir.IRInt(1), "bad": nil},
		Attributes{"id": ir.IRBool(true)},
		Attributes{"id": ir.IRInt(1), "list": ir.IRArray{ir.IRInt(1), nil}},
	} {
		_, err := s.CreateRecord(ctx, "post", rec)
		assert.ErrorIs(t, err, ErrSerializationRejected)

		_, err = s.UpdateRecord(ctx, "post", rec)
		assert.Error(t, err)
	}

	_, ok, err := dev.Get(ctx, s.BlobKey())
	require.NoError(t, err)
	assert.False(t, ok, "nothing was persisted")
}

func TestUpdateRecord_Upserts(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.UpdateRecord(ctx, "user", Attributes{"id": ir.IRString("new"), "name": ir.IRString("x")})
	require.NoError(t, err)

	got, err := s.Find(ctx, "user", "new")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("x"), got["name"])
}

func TestUpdateRecord_ReplacesAttributes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	_, err := s.UpdateRecord(ctx, "comment", Attributes{"id": ir.IRInt(1), "text": ir.IRString("edited")})
	require.NoError(t, err)

	got, err := s.Find(ctx, "comment", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString("edited")}, got)
}

// renamingRecord serializes an id that differs from its identity.
type renamingRecord struct{}

func (renamingRecord) ID() ir.IRValue { return ir.IRInt(1) }
func (renamingRecord) Serialize(SerializeOptions) (ir.IRObject, error) {
	return ir.IRObject{"id": ir.IRInt(2), "text": ir.IRString("edited")}, nil
}

func TestUpdateRecord_IdentityWinsOverSerializedID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	stored, err := s.UpdateRecord(ctx, "comment", renamingRecord{})
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(1), stored["id"])

	got, err := s.Find(ctx, "comment", "1")
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString("edited")}, got)

	got, err = s.Find(ctx, "comment", "2")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("y"), got["text"], "comment 2 untouched")
}

func TestUpdateRecord_MissingID(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.UpdateRecord(context.Background(), "user", Attributes{"name": ir.IRString("x")})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestDeleteRecord_AbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	seedBlog(t, s)

	require.NoError(t, s.DeleteRecord(ctx, "comment", Attributes{"id": ir.IRInt(404)}))

	all, err := s.FindAll(ctx, "comment")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.ErrorIs(t, s.DeleteRecord(ctx, "comment", Attributes{}), ErrMissingID)
}

func TestUnknownType(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Find(ctx, "tag", "1")
	assert.ErrorIs(t, err, schema.ErrUnknownType)
	_, err = s.CreateRecord(ctx, "tag", Attributes{"id": ir.IRInt(1)})
	assert.ErrorIs(t, err, schema.ErrUnknownType)
}

func TestNamespaceOverride(t *testing.T) {
	ctx := context.Background()
	reg := schema.NewRegistry(ir.TypeSchema{Name: "post", Namespace: "App.Post"})
	s := New(device.NewMemory(), reg)

	create(t, s, "post", Attributes{"id": ir.IRInt(1)})

	blob, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, blob, "App.Post")
	assert.NotContains(t, blob, "post")
}

func TestPersistedBlob_Golden(t *testing.T) {
	ctx := context.Background()
	s, dev := newTestStore(t)
	seedBlog(t, s)

	// Reads must not leak embedded payloads into storage.
	_, err := s.Find(ctx, "post", "1")
	require.NoError(t, err)

	raw, ok, err := dev.Get(ctx, s.BlobKey())
	require.NoError(t, err)
	require.True(t, ok)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "post_comment_blob", raw)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.CreateRecord(ctx, "post", Attributes{"id": ir.IRInt(int64(i + 1))})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.CreateRecord(ctx, "comment", Attributes{"id": ir.IRString(fmt.Sprintf("c%d", i))})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	posts, err := s.FindAll(ctx, "post")
	require.NoError(t, err)
	comments, err := s.FindAll(ctx, "comment")
	require.NoError(t, err)
	assert.Len(t, posts, n, "no post lost to a concurrent write")
	assert.Len(t, comments, n, "no comment lost to a concurrent write")
}

func TestDepthOption(t *testing.T) {
	ctx := context.Background()

	flat, _ := newTestStore(t, WithDepth(0))
	seedBlog(t, flat)
	got, err := flat.Find(ctx, "post", "1")
	require.NoError(t, err)
	assert.NotContains(t, got, ir.EmbeddedKey)

	deep, _ := newTestStore(t, WithDepth(2))
	create(t, deep, "profile", Attributes{"id": ir.IRString("p1"), "bio": ir.IRString("hi")})
	create(t, deep, "user", Attributes{"id": ir.IRString("u1"), "profile": ir.IRString("p1")})
	create(t, deep, "post", Attributes{"id": ir.IRInt(1), "author": ir.IRString("u1")})

	got, err = deep.Find(ctx, "post", "1")
	require.NoError(t, err)
	author := got[ir.EmbeddedKey].(ir.IRObject)["author"].(ir.IRObject)
	profile := author[ir.EmbeddedKey].(ir.IRObject)["profile"].(ir.IRObject)
	assert.Equal(t, ir.IRString("hi"), profile["bio"])
}

func TestBlobKeyIsolation(t *testing.T) {
	ctx := context.Background()
	dev := device.NewMemory()
	a := New(dev, testutil.BlogSchemas(), WithBlobKey("a"))
	b := New(dev, testutil.BlogSchemas(), WithBlobKey("b"))

	create(t, a, "post", Attributes{"id": ir.IRInt(1)})

	_, err := b.Find(ctx, "post", "1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "a", a.BlobKey())
}

func TestDeviceFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")

	dev := testutil.NewFailingDevice(boom)
	s := New(dev, testutil.BlogSchemas())

	_, err := s.Find(ctx, "post", "1")
	assert.ErrorIs(t, err, boom)
	_, err = s.CreateRecord(ctx, "post", Attributes{"id": ir.IRInt(1)})
	assert.ErrorIs(t, err, boom)

	dev.FailGet = false
	_, err = s.CreateRecord(ctx, "post", Attributes{"id": ir.IRInt(1)})
	assert.ErrorIs(t, err, boom, "write failures propagate")
	_, err = s.Find(ctx, "post", "1")
	assert.ErrorIs(t, err, ErrNotFound, "failed persist leaves the device copy authoritative")
}

func TestResolutionDeviceFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("read failed")
	dev := &failAfterDevice{FailingDevice: &testutil.FailingDevice{Memory: device.NewMemory(), Err: boom}, after: -1}
	seedBlog(t, New(dev, testutil.BlogSchemas()))

	// The first Get loads the post; the fetch of its comments fails.
	dev.after = 1
	_, err := New(dev, testutil.BlogSchemas()).Find(ctx, "post", "1")
	assert.ErrorIs(t, err, boom)
}

// failAfterDevice lets the next after Gets through and fails the rest.
// A negative after never fails.
type failAfterDevice struct {
	*testutil.FailingDevice
	mu    sync.Mutex
	after int
}

func (d *failAfterDevice) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.after < 0 {
		return d.FailingDevice.Get(ctx, key)
	}
	if d.after > 0 {
		d.after--
		return d.FailingDevice.Get(ctx, key)
	}
	return nil, false, d.Err
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "relstore.db")

	dev, err := device.OpenSQLite(path)
	require.NoError(t, err)
	seedBlog(t, New(dev, testutil.BlogSchemas()))
	require.NoError(t, dev.Close())

	dev, err = device.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	got, err := New(dev, testutil.BlogSchemas()).Find(ctx, "post", "1")
	require.NoError(t, err)
	assert.Len(t, got[ir.EmbeddedKey].(ir.IRObject)["comments"], 2)
}
