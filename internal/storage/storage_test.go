package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulletin-sync/internal/config"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	tmpDir := t.TempDir()
	cfg := config.StorageConfig{
		Type:         "local",
		LocalPath:    tmpDir,
		HistoryLimit: 3,
	}

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return s, tmpDir
}

func runAt(t *testing.T, kind, id string, at time.Time) RunEntry {
	t.Helper()
	entry, err := NewRunEntry(kind, id, at, at.Add(time.Minute), true, map[string]int{"created": 1})
	require.NoError(t, err)
	return entry
}

func TestSaveRun_LocalPersistsAndReloads(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, runAt(t, KindImport, "r1", base)))
	require.NoError(t, s.SaveRun(ctx, runAt(t, KindImport, "r2", base.Add(time.Hour))))
	require.NoError(t, s.SaveRun(ctx, runAt(t, KindDispatch, "d1", base)))

	_, err := os.Stat(filepath.Join(dir, "runs", KindImport, "r1.json"))
	require.NoError(t, err)

	reloaded, err := New(ctx, config.StorageConfig{Type: "local", LocalPath: dir, HistoryLimit: 3})
	require.NoError(t, err)

	runs := reloaded.RecentRuns(KindImport, 10)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, "r1", runs[1].RunID)
	assert.JSONEq(t, `{"created":1}`, string(runs[0].Report))
	assert.Len(t, reloaded.RecentRuns(KindDispatch, 0), 1)
}

func TestRecentRuns_LimitAndOrder(t *testing.T) {
	s, _ := newTestStorage(t)
	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.SaveRun(context.Background(), runAt(t, KindImport, id, base.Add(time.Duration(i)*time.Hour))))
	}

	// History is capped at 3
	runs := s.RecentRuns(KindImport, 0)
	require.Len(t, runs, 3)
	assert.Equal(t, "d", runs[0].RunID)
	assert.Equal(t, "b", runs[2].RunID)

	assert.Len(t, s.RecentRuns(KindImport, 1), 1)
	assert.Empty(t, s.RecentRuns(KindDispatch, 5))
}

func TestSaveRun_MemoryOnly(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{})
	require.NoError(t, err)

	require.NoError(t, s.SaveRun(context.Background(), runAt(t, KindDispatch, "x", time.Now())))
	assert.Len(t, s.RecentRuns(KindDispatch, 0), 1)
}

func TestLoadRecords_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	content := `[{"email":"a@x.com","mobile":306912345678901,"climabulletin":1},{"email":"b@x.com"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, _ := newTestStorage(t)
	for _, source := range []string{path, "file://" + path} {
		records, err := s.LoadRecords(context.Background(), source)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, json.Number("306912345678901"), records[0]["mobile"])
		assert.Equal(t, "b@x.com", records[1]["email"])
	}
}

func TestLoadRecords_Errors(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	_, err := s.LoadRecords(ctx, filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = s.LoadRecords(ctx, "s3://bucket-only")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = s.LoadRecords(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = DecodeRecords(strings.NewReader(`{"email":"not an array"}`))
	assert.Error(t, err)
}

type fakeGetter struct {
	objects map[string][]byte
	calls   []string
}

func (f *fakeGetter) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.calls = append(f.calls, bucket+"/"+key)
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func TestLoadRecords_S3(t *testing.T) {
	getter := &fakeGetter{objects: map[string][]byte{
		"imports/2024/signups.json": []byte(`[{"email":"a@x.com"}]`),
	}}
	s := NewWithObjectGetter(config.StorageConfig{}, getter)

	records, err := s.LoadRecords(context.Background(), "s3://imports/2024/signups.json")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"email": "a@x.com"}}, records)
	assert.Equal(t, []string{"imports/2024/signups.json"}, getter.calls)

	_, err = s.LoadRecords(context.Background(), "s3://imports/none.json")
	assert.Error(t, err)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, ok, err := ParseS3URI("s3://b/path/to/k.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", bucket)
	assert.Equal(t, "path/to/k.json", key)

	_, _, ok, err = ParseS3URI("/tmp/records.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeDynamo struct {
	items []map[string]types.AttributeValue
	query *dynamodb.QueryInput
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.query = in
	return &dynamodb.QueryOutput{Items: f.items}, nil
}

type fakeS3 struct {
	puts map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.puts[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestAWSStorage_RunHistory(t *testing.T) {
	dyn := &fakeDynamo{}
	blob := &fakeS3{puts: make(map[string][]byte)}
	aws := &AWSStorage{dynamoDB: dyn, s3Client: blob, tableName: "runs", bucket: "reports"}
	s := &Storage{config: config.StorageConfig{Type: "aws"}, aws: aws, recent: make(map[string][]RunEntry)}

	at := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(context.Background(), runAt(t, KindImport, "r1", at)))

	require.Len(t, dyn.items, 1)
	pk := dyn.items[0]["PK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "RUN#import", pk.Value)
	sk := dyn.items[0]["SK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "2024-05-01T06:00:00Z#r1", sk.Value)

	archived, err := aws.GetObject(context.Background(), "reports", "runs/import/2024/05/01/r1.json")
	require.NoError(t, err)
	assert.Contains(t, string(archived), `"run_id": "r1"`)

	runs, err := aws.GetRuns(context.Background(), KindImport, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
	assert.Equal(t, "runs", *dyn.query.TableName)
}
