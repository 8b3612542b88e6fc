package ride

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRide(messageID string) *Ride {
	return &Ride{
		RideID:          "abc123",
		MessageID:       messageID,
		ChannelID:       "chan-1",
		DriverID:        "driver-1",
		Destination:     "Town",
		Departure:       "Sat 6/15 at 2:30 PM",
		MeetingLocation: "Main gate",
		Notes:           "None",
		TotalSeats:      3,
		Riders:          []string{},
		ExpiresAt:       1700000000000,
	}
}

func TestStorePutGet(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	store.Put(ctx, r)

	got := store.Get("m1")
	require.NotNil(t, got)
	assert.Equal(t, r, got)

	assert.Nil(t, store.Get("missing"))
}

func TestStoreGetDoesNotSearchArchive(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	store.Put(ctx, r)
	store.Archive(ctx, r)

	assert.Nil(t, store.Get("m1"))
	assert.NotNil(t, store.GetArchived("m1"))
}

func TestStoreRemoveIdempotent(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	store.Put(ctx, testRide("m1"))
	store.Remove(ctx, "m1")
	assert.Nil(t, store.Get("m1"))

	// Removing again must not panic or change anything.
	store.Remove(ctx, "m1")
	store.Remove(ctx, "never-existed")
	assert.Empty(t, store.ListAll())
}

func TestStoreArchiveRoundTrip(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	r.ThreadID = "t1"
	r.Riders = []string{"u1", "u2"}
	store.Put(ctx, r)

	store.Archive(ctx, r)
	assert.Nil(t, store.Get("m1"))
	assert.Empty(t, store.ListAll())

	got := store.Unarchive(ctx, "m1")
	require.NotNil(t, got)
	assert.Equal(t, r, got)
	assert.NotNil(t, store.Get("m1"))
	assert.Nil(t, store.GetArchived("m1"))
}

func TestStoreUnarchiveMissing(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	assert.Nil(t, store.Unarchive(context.Background(), "nope"))
}

func TestStoreListAll(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	store.Put(ctx, testRide("m1"))
	store.Put(ctx, testRide("m2"))
	store.Put(ctx, testRide("m3"))

	rides := store.ListAll()
	assert.Len(t, rides, 3)
}

func TestStoreFindByThreadAndRideID(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	r.ThreadID = "t1"
	store.Put(ctx, r)

	noThread := testRide("m2")
	noThread.RideID = "zzz999"
	store.Put(ctx, noThread)

	assert.Equal(t, r, store.FindByThread("t1"))
	assert.Nil(t, store.FindByThread("t2"))
	// Rides without a thread must never match the empty thread ID.
	assert.Nil(t, store.FindByThread(""))

	assert.Equal(t, r, store.FindByRideID("abc123"))
	assert.Equal(t, noThread, store.FindByRideID("zzz999"))
	assert.Nil(t, store.FindByRideID("nope"))
}

func TestStoreFindArchivedByThread(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	r.ThreadID = "t1"
	store.Put(ctx, r)
	store.Archive(ctx, r)

	assert.Equal(t, r, store.FindArchivedByThread("t1"))
	assert.Nil(t, store.FindArchivedByThread("t9"))
}

func TestStoreHandsOutCopies(t *testing.T) {
	store := NewStore(newMemPersister(), testLogger())
	ctx := context.Background()

	r := testRide("m1")
	store.Put(ctx, r)

	// Mutating the caller's record after Put must not leak into the store.
	r.Riders = append(r.Riders, "u1")
	r.ThreadID = "t1"
	got := store.Get("m1")
	require.NotNil(t, got)
	assert.Empty(t, got.Riders)
	assert.Empty(t, got.ThreadID)

	// Mutating a returned record must not leak back in either.
	got.Riders = append(got.Riders, "u2")
	assert.Empty(t, store.Get("m1").Riders)
	for _, listed := range store.ListAll() {
		assert.Empty(t, listed.Riders)
	}

	store.Archive(ctx, store.Get("m1"))
	archived := store.GetArchived("m1")
	archived.Riders = append(archived.Riders, "u3")
	assert.Empty(t, store.GetArchived("m1").Riders)
}

func TestStorePersistFailureKeepsMemoryAuthoritative(t *testing.T) {
	persister := newMemPersister()
	persister.failAll = true
	store := NewStore(persister, testLogger())
	ctx := context.Background()

	r := testRide("m1")
	store.Put(ctx, r)

	// The write failed, but the in-memory view still serves the ride.
	assert.Equal(t, r, store.Get("m1"))

	store.Archive(ctx, r)
	assert.Equal(t, r, store.GetArchived("m1"))
}

func TestStoreLoad(t *testing.T) {
	persister := newMemPersister()
	ctx := context.Background()

	active := testRide("m1")
	archived := testRide("m2")
	require.NoError(t, persister.SaveActive(ctx, active))
	require.NoError(t, persister.SaveArchived(ctx, archived))

	store := NewStore(persister, testLogger())
	require.NoError(t, store.Load(ctx))

	assert.Equal(t, active, store.Get("m1"))
	assert.Equal(t, archived, store.GetArchived("m2"))
}
