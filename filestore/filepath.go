// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package filestore

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/featureform/historical/fferr"
)

type FileType string

type FileStoreType string

const (
	FileSystem FileStoreType = "LOCAL_FILESYSTEM"
	S3         FileStoreType = "S3"
)

const (
	Parquet FileType = "parquet"
	CSV     FileType = "csv"
	Arrow   FileType = "arrow"
	NoExt   FileType = ""
)

const (
	FileScheme = "file"
	S3Scheme   = "s3"
	S3AScheme  = "s3a"
)

var ValidSchemes = []string{
	FileScheme, S3Scheme, S3AScheme,
}

func IsFileScheme(scheme string) bool {
	for _, s := range ValidSchemes {
		if s == scheme {
			return true
		}
	}
	return false
}

func (ft FileType) Matches(file string) bool {
	return FileType(GetFileExtension(file)) == ft
}

func GetFileType(file string) FileType {
	for _, fileType := range []FileType{Parquet, CSV, Arrow} {
		if fileType.Matches(file) {
			return fileType
		}
	}
	return NoExt
}

func IsValidFileType(file string) bool {
	return GetFileType(file) != NoExt
}

func GetFileExtension(file string) string {
	ext := filepath.Ext(file)
	return strings.ToLower(strings.ReplaceAll(ext, ".", ""))
}

type Filepath interface {
	// Scheme is the bare protocol, without "://".
	Scheme() string
	// Bucket is the S3 bucket, or the root directory for local paths.
	Bucket() string
	// Key is the object path relative to Bucket.
	Key() string
	KeyPrefix() string
	IsDir() bool
	Ext() FileType
	StoreType() FileStoreType
	ToURI() string
	Validate() error
}

// ParseFilepath parses a file or object-store locator. A trailing slash
// marks the path as a directory of part files.
func ParseFilepath(raw string) (Filepath, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fferr.NewInvalidArgumentErrorf("could not parse path '%s': %v", raw, err)
	}
	isDir := strings.HasSuffix(u.Path, "/")
	var fp Filepath
	switch u.Scheme {
	case FileScheme:
		fp = newLocalFilepath(u.Host, u.Path, isDir)
	case S3Scheme, S3AScheme:
		fp = &S3Filepath{FilePath{
			scheme: u.Scheme,
			bucket: u.Host,
			key:    strings.Trim(u.Path, "/"),
			isDir:  isDir,
		}}
	default:
		return nil, fferr.NewInvalidArgumentErrorf("invalid scheme '%s', must be one of %v", u.Scheme, ValidSchemes)
	}
	if err := fp.Validate(); err != nil {
		return nil, err
	}
	return fp, nil
}

type FilePath struct {
	scheme string
	bucket string
	key    string
	isDir  bool
}

func (fp *FilePath) Scheme() string {
	return fp.scheme
}

func (fp *FilePath) Bucket() string {
	return fp.bucket
}

func (fp *FilePath) Key() string {
	return fp.key
}

// KeyPrefix is the directory portion of the key with a trailing slash, or
// the key itself when the path is a directory.
func (fp *FilePath) KeyPrefix() string {
	if fp.isDir {
		if fp.key == "" {
			return ""
		}
		return fp.key + "/"
	}
	dir := path.Dir(fp.key)
	if dir == "." {
		return ""
	}
	return dir + "/"
}

func (fp *FilePath) Ext() FileType {
	return FileType(GetFileExtension(fp.key))
}

func (fp *FilePath) IsDir() bool {
	return fp.isDir
}

type S3Filepath struct {
	FilePath
}

func (s3 *S3Filepath) StoreType() FileStoreType {
	return S3
}

func (s3 *S3Filepath) Validate() error {
	if s3.scheme != S3Scheme && s3.scheme != S3AScheme {
		return fferr.NewInvalidArgumentErrorf("invalid scheme '%s', must be 's3' or 's3a'", s3.scheme)
	}
	if s3.bucket == "" {
		return fferr.NewInvalidArgumentErrorf("bucket cannot be empty")
	}
	if s3.key == "" && !s3.isDir {
		return fferr.NewInvalidArgumentErrorf("key cannot be empty")
	}
	return nil
}

func (s3 *S3Filepath) ToURI() string {
	uri := fmt.Sprintf("%s://%s/%s", s3.scheme, s3.bucket, s3.key)
	if s3.isDir && !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri
}

// LocalFilepath splits an absolute path into the directory opened as a
// bucket and the key under it. Directory paths use the directory itself as
// the bucket.
type LocalFilepath struct {
	FilePath
}

func newLocalFilepath(host, p string, isDir bool) *LocalFilepath {
	full := path.Clean(path.Join("/", host, p))
	fp := &LocalFilepath{FilePath{scheme: FileScheme, isDir: isDir}}
	if isDir {
		fp.bucket = full
		return fp
	}
	fp.bucket = path.Dir(full)
	fp.key = path.Base(full)
	return fp
}

func (local *LocalFilepath) StoreType() FileStoreType {
	return FileSystem
}

func (local *LocalFilepath) Validate() error {
	if local.bucket == "" {
		return fferr.NewInvalidArgumentErrorf("path cannot be empty")
	}
	if !local.isDir && (local.key == "" || local.key == "/") {
		return fferr.NewInvalidArgumentErrorf("file path must name a file")
	}
	return nil
}

func (local *LocalFilepath) ToURI() string {
	if local.isDir {
		return fmt.Sprintf("file://%s/", strings.TrimSuffix(local.bucket, "/"))
	}
	return fmt.Sprintf("file://%s", path.Join(local.bucket, local.key))
}
