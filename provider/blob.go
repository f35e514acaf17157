// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package provider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsv2cfg "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/featureform/historical/fferr"
	"github.com/featureform/historical/filestore"
	types "github.com/featureform/historical/fftypes"
	"github.com/featureform/historical/logging"
	pa "github.com/featureform/historical/provider/arrow"
	pl "github.com/featureform/historical/provider/location"
)

// BucketOpener opens the bucket that holds a path. The caller closes it.
type BucketOpener func(ctx context.Context, fp filestore.Filepath, creds S3Credentials) (*blob.Bucket, error)

func DefaultBucketOpener(ctx context.Context, fp filestore.Filepath, creds S3Credentials) (*blob.Bucket, error) {
	switch fp.StoreType() {
	case filestore.FileSystem:
		return fileblob.OpenBucket(fp.Bucket(), nil)
	case filestore.S3:
		return openS3Bucket(ctx, fp.Bucket(), creds)
	default:
		return nil, fferr.NewInvalidArgumentErrorf("unsupported file store %s", fp.StoreType())
	}
}

// openS3Bucket connects to S3, or to an S3 compatible store such as MinIO
// when an endpoint is set.
func openS3Bucket(ctx context.Context, bucket string, creds S3Credentials) (*blob.Bucket, error) {
	opts := []func(*awsv2cfg.LoadOptions) error{
		awsv2cfg.WithRegion(creds.Region),
	}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsv2cfg.WithCredentialsProvider(awscreds.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID: creds.AccessKeyID, SecretAccessKey: creds.SecretAccessKey,
			},
		}))
	}
	cfg, err := awsv2cfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	clientV2 := s3v2.NewFromConfig(cfg, func(o *s3v2.Options) {
		if creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(creds.Endpoint)
		}
		o.UsePathStyle = creds.UsePathStyle
	})
	return s3blob.OpenBucketV2(ctx, clientV2, bucket, nil)
}

// BlobSource reads parquet, csv and arrow files from local disk or S3. A
// directory locator reads every data file under it, in key order.
type BlobSource struct {
	credentials CredentialProvider
	opener      BucketOpener
}

func NewBlobSource(creds CredentialProvider) *BlobSource {
	return &BlobSource{credentials: creds, opener: DefaultBucketOpener}
}

func NewBlobSourceWithOpener(creds CredentialProvider, opener BucketOpener) *BlobSource {
	return &BlobSource{credentials: creds, opener: opener}
}

func (s *BlobSource) Read(ctx context.Context, desc SourceDescriptor, schema types.Schema) (*pa.Table, error) {
	loc, err := pl.Parse(desc.Locator)
	if err != nil {
		return nil, err
	}
	fileLoc, ok := loc.(*pl.FileStoreLocation)
	if !ok {
		return nil, fferr.NewInvalidArgumentErrorf("locator %s is not a file locator", loc.Location())
	}
	fp := fileLoc.Filepath()
	source := fp.ToURI()
	logger := logging.GetLoggerFromContext(ctx).WithSource(fp.Scheme(), source)

	bucket, err := s.openBucket(ctx, loc, fp)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()

	keys := []string{fp.Key()}
	if fp.IsDir() {
		keys, err = listDataFiles(ctx, bucket, fp.KeyPrefix())
		if err != nil {
			return nil, fferr.NewSourceUnavailableError(fp.Scheme(), source, err)
		}
		logger.Debugw("Reading multi-part source", "parts", len(keys))
	}
	tables := make([]*pa.Table, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := s.readKey(ctx, bucket, key, fp.Scheme(), source, schema)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return pa.Concat(tables...)
}

func (s *BlobSource) openBucket(ctx context.Context, loc pl.Location, fp filestore.Filepath) (*blob.Bucket, error) {
	creds, err := s.credentials.Credentials(ctx, loc)
	if err != nil {
		return nil, err
	}
	s3Creds, err := creds.S3()
	if err != nil {
		return nil, err
	}
	bucket, err := s.opener(ctx, fp, s3Creds)
	if err != nil {
		return nil, fferr.NewSourceUnavailableError(fp.Scheme(), fp.ToURI(), err)
	}
	return bucket, nil
}

func (s *BlobSource) readKey(ctx context.Context, bucket *blob.Bucket, key, scheme, source string, schema types.Schema) (*pa.Table, error) {
	fileType := filestore.GetFileType(key)
	if fileType == filestore.NoExt {
		return nil, fferr.NewInvalidFileTypeError(filestore.GetFileExtension(key), nil)
	}
	b, err := bucket.ReadAll(ctx, key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		srcErr := fferr.NewSourceUnavailableError(scheme, source, err)
		if gcerrors.Code(err) == gcerrors.NotFound {
			srcErr.AddDetail("key", key)
		}
		return nil, srcErr
	}
	switch fileType {
	case filestore.Parquet:
		return readParquet(b, schema, source)
	case filestore.CSV:
		return readCSV(b, schema, source)
	case filestore.Arrow:
		table, err := pa.ReadIPC(bytes.NewReader(b))
		if err != nil {
			return nil, fferr.NewSchemaMismatchErrorf(source, "invalid arrow file: %v", err)
		}
		return projectTable(table, schema, source)
	default:
		return nil, fferr.NewInvalidFileTypeError(string(fileType), nil)
	}
}

// listDataFiles returns the parquet files under prefix, or the csv files
// when there are no parquet files.
func listDataFiles(ctx context.Context, bucket *blob.Bucket, prefix string) ([]string, error) {
	byType := map[filestore.FileType][]string{}
	iter := bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		fileType := filestore.GetFileType(obj.Key)
		byType[fileType] = append(byType[fileType], obj.Key)
	}
	for _, fileType := range []filestore.FileType{filestore.Parquet, filestore.CSV, filestore.Arrow} {
		if keys := byType[fileType]; len(keys) > 0 {
			sort.Strings(keys)
			return keys, nil
		}
	}
	return nil, fferr.NewInternalErrorf("no data files under prefix '%s'", prefix)
}
