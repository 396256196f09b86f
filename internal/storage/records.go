package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrInvalidSource is returned for a record source that cannot be parsed
var ErrInvalidSource = errors.New("invalid record source")

// ObjectGetter reads an object from a bucket
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// ParseS3URI splits "s3://bucket/key" into its parts.
// ok is false for sources that are not S3 URIs.
func ParseS3URI(source string) (bucket, key string, ok bool, err error) {
	rest, found := strings.CutPrefix(source, "s3://")
	if !found {
		return "", "", false, nil
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	return bucket, key, true, nil
}

// LoadRecords reads a JSON array of record objects from a local path, a
// file:// URL or an s3:// URI.
func (s *Storage) LoadRecords(ctx context.Context, source string) ([]map[string]any, error) {
	bucket, key, isS3, err := ParseS3URI(source)
	if err != nil {
		return nil, err
	}

	var data []byte
	if isS3 {
		getter, err := s.objectGetter(ctx)
		if err != nil {
			return nil, err
		}
		if data, err = getter.GetObject(ctx, bucket, key); err != nil {
			return nil, err
		}
	} else {
		path := strings.TrimPrefix(source, "file://")
		if path == "" {
			return nil, fmt.Errorf("%w: empty path", ErrInvalidSource)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("reading records: %w", err)
		}
	}
	return DecodeRecords(bytes.NewReader(data))
}

// objectGetter returns the configured AWS storage, creating an S3 client on
// first use when storage is not AWS-backed
func (s *Storage) objectGetter(ctx context.Context) (ObjectGetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getter != nil {
		return s.getter, nil
	}
	if s.aws == nil {
		awsStorage, err := NewAWSStorage(ctx, "", "", s.config.AWSRegion, s.config.GetAWSProfile())
		if err != nil {
			return nil, err
		}
		s.aws = awsStorage
	}
	s.getter = s.aws
	return s.getter, nil
}

// DecodeRecords decodes a JSON array of objects. Numbers stay json.Number so
// long phone numbers keep every digit.
func DecodeRecords(r io.Reader) ([]map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}
