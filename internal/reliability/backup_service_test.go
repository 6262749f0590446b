package reliability

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qbench/internal/database"
	"github.com/aristath/qbench/internal/events"
)

type fakeStore struct {
	uploads map[string][]byte
	objects []types.Object
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: make(map[string][]byte)}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploads[key] = data
	return nil
}

func (f *fakeStore) List(ctx context.Context, prefix string) ([]types.Object, error) {
	return f.objects, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func setupBackupService(t *testing.T, store ObjectStore, bus *events.Bus) *BackupService {
	t.Helper()

	dataDir := t.TempDir()

	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, "results.db"),
		Profile: database.ProfileStandard,
		Name:    "results",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec("CREATE TABLE sample (id INTEGER PRIMARY KEY, note TEXT)")
	require.NoError(t, err)
	_, err = db.Conn().Exec("INSERT INTO sample (note) VALUES ('kept')")
	require.NoError(t, err)

	return NewBackupService(db, store, bus, dataDir, testLogger())
}

func TestCreateAndUpload(t *testing.T) {
	store := newFakeStore()
	bus := events.NewBus()

	var completed int
	bus.Subscribe(events.BackupCompleted, func(event *events.Event) { completed++ })

	service := setupBackupService(t, store, bus)
	require.NoError(t, service.CreateAndUpload(context.Background()))

	require.Len(t, store.uploads, 1)
	for key, data := range store.uploads {
		assert.Contains(t, key, backupPrefix)
		assert.Contains(t, key, ".tar.gz")
		assert.NotEmpty(t, data)
		// gzip magic bytes
		assert.True(t, bytes.HasPrefix(data, []byte{0x1f, 0x8b}))
	}

	assert.Equal(t, 1, completed)
}

func TestListBackupsParsesAndSorts(t *testing.T) {
	store := newFakeStore()
	store.objects = []types.Object{
		{Key: aws.String("qbench-backup-2026-08-01-120000.tar.gz"), Size: aws.Int64(100)},
		{Key: aws.String("qbench-backup-2026-08-20-120000.tar.gz"), Size: aws.Int64(200)},
		{Key: aws.String("unrelated-object.txt"), Size: aws.Int64(5)},
		{Key: aws.String("qbench-backup-garbage.tar.gz"), Size: aws.Int64(5)},
	}

	service := setupBackupService(t, store, events.NewBus())

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)

	assert.Equal(t, "qbench-backup-2026-08-20-120000.tar.gz", backups[0].Key)
	assert.Equal(t, "qbench-backup-2026-08-01-120000.tar.gz", backups[1].Key)
	assert.Equal(t, int64(200), backups[0].SizeBytes)
}

func TestRotateKeepsMinimumBackups(t *testing.T) {
	store := newFakeStore()
	old := time.Now().AddDate(0, 0, -90)
	for i := 0; i < 3; i++ {
		key := backupPrefix + old.AddDate(0, 0, i).Format(backupTimeLayout) + ".tar.gz"
		store.objects = append(store.objects, types.Object{Key: aws.String(key), Size: aws.Int64(10)})
	}

	service := setupBackupService(t, store, events.NewBus())
	require.NoError(t, service.RotateOldBackups(context.Background(), 30))

	// Never rotate below the floor, however old the backups are
	assert.Empty(t, store.deleted)
}

func TestRotateDeletesExpiredBackups(t *testing.T) {
	store := newFakeStore()

	recent := time.Now().AddDate(0, 0, -1)
	expired := time.Now().AddDate(0, 0, -60)
	keys := []time.Time{recent, recent.Add(-time.Hour), recent.Add(-2 * time.Hour), expired, expired.Add(-time.Hour)}
	for _, ts := range keys {
		key := backupPrefix + ts.Format(backupTimeLayout) + ".tar.gz"
		store.objects = append(store.objects, types.Object{Key: aws.String(key), Size: aws.Int64(10)})
	}

	service := setupBackupService(t, store, events.NewBus())
	require.NoError(t, service.RotateOldBackups(context.Background(), 30))

	assert.Len(t, store.deleted, 2)
	for _, key := range store.deleted {
		assert.Contains(t, key, expired.Format("2006-01-02"))
	}
}

func TestRotateZeroRetentionKeepsEverything(t *testing.T) {
	store := newFakeStore()
	old := time.Now().AddDate(-1, 0, 0)
	for i := 0; i < 6; i++ {
		key := backupPrefix + old.AddDate(0, 0, i).Format(backupTimeLayout) + ".tar.gz"
		store.objects = append(store.objects, types.Object{Key: aws.String(key), Size: aws.Int64(10)})
	}

	service := setupBackupService(t, store, events.NewBus())
	require.NoError(t, service.RotateOldBackups(context.Background(), 0))

	assert.Empty(t, store.deleted)
}
