/*
Copyright © 2026 the popcover authors.
This file is part of popcover.

popcover is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

popcover is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with popcover.  If not, see <http://www.gnu.org/licenses/>.
*/

package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// companions returns the files that accompany filename. Required files
// must be transferred with it; optional ones are transferred if they
// exist.
func companions(filename string) (required, optional []string) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".shp":
		base := filename[0 : len(filename)-4]
		return []string{base + ".dbf", base + ".shx"}, []string{base + ".prj"}
	case ".asc":
		return nil, []string{filename[0:len(filename)-4] + ".prj"}
	case ".bin":
		return []string{filename[0:len(filename)-4] + "_meta.json"}, nil
	}
	return nil, nil
}

// Downloader fetches remote inputs into temporary local directories.
// The directories are removed by Cleanup.
type Downloader struct {
	dirs []string
}

// MaybeDownload checks if path is an existing local file. If not, and
// path is an HTTP(S) or blob storage URL, the file and its companion
// files (e.g. the .dbf, .shx and .prj files of a shapefile) are
// downloaded to a temporary directory and the local path of the
// downloaded file is returned. Other paths are returned unchanged.
func (d *Downloader) MaybeDownload(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path, nil
	}
	var get func(ctx context.Context, src string) (io.ReadCloser, error)
	switch {
	case strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://"):
		get = getHTTP
	case IsBlob(path):
		get = getBlob
	default:
		return path, nil
	}

	dir, err := os.MkdirTemp("", "popcover")
	if err != nil {
		return "", fmt.Errorf("cloud: creating temporary download directory: %w", err)
	}
	required, optional := companions(path)
	for _, f := range append([]string{path}, required...) {
		if err := download(ctx, get, f, dir); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	for _, f := range optional {
		if err := download(ctx, get, f, dir); err != nil && !isNotFound(err) {
			os.RemoveAll(dir)
			return "", err
		}
	}
	d.dirs = append(d.dirs, dir)
	return filepath.Join(dir, filepath.Base(path)), nil
}

// Cleanup removes the downloaded files.
func (d *Downloader) Cleanup() error {
	var first error
	for _, dir := range d.dirs {
		if err := os.RemoveAll(dir); err != nil && first == nil {
			first = err
		}
	}
	d.dirs = nil
	return first
}

// notFoundError marks a download source that does not exist.
type notFoundError struct{ src string }

func (e notFoundError) Error() string { return fmt.Sprintf("cloud: %s not found", e.src) }

func isNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}

func download(ctx context.Context, get func(context.Context, string) (io.ReadCloser, error), src, dir string) error {
	r, err := get(ctx, src)
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(filepath.Join(dir, filepath.Base(src)))
	if err != nil {
		return fmt.Errorf("cloud: creating file for download: %w", err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: downloading %s: %w", src, err)
	}
	return w.Close()
}

func getHTTP(ctx context.Context, src string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: %w", err)
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("cloud: downloading %s: %w", src, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, notFoundError{src}
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("cloud: downloading %s: %s", src, resp.Status)
	}
	return resp.Body, nil
}

func getBlob(ctx context.Context, src string) (io.ReadCloser, error) {
	bucketName, key, err := splitBlob(src)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		closeBucket(bucket)
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, notFoundError{src}
		}
		return nil, fmt.Errorf("cloud: reading blob %s: %w", src, err)
	}
	return &blobReader{Reader: r, bucket: bucket}, nil
}

// blobReader closes its bucket along with the reader.
type blobReader struct {
	*blob.Reader
	bucket *blob.Bucket
}

func (r *blobReader) Close() error {
	err := r.Reader.Close()
	if cerr := closeBucket(r.bucket); err == nil {
		err = cerr
	}
	return err
}

// closeBucket releases the resources held by b.
func closeBucket(b *blob.Bucket) error {
	if c, ok := interface{}(b).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// writeBlob copies r to the given key of bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, r io.Reader) error {
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %w", key, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %w", key, err)
	}
	return nil
}

// Uploader redirects output files destined for blob storage to a
// temporary local directory, and uploads them once they are written.
type Uploader struct {
	// files holds pairs of local file paths and the blob
	// storage paths they should be uploaded to.
	files [][2]string
	dir   string
}

// MaybeUpload checks whether path refers to a blob storage location.
// If it does, a temporary local path is returned, and the file written
// there (along with its companion files) will be uploaded to path by
// Upload. Other paths are returned unchanged.
func (u *Uploader) MaybeUpload(path string) (string, error) {
	if !IsBlob(path) {
		return path, nil
	}
	if u.dir == "" {
		var err error
		if u.dir, err = os.MkdirTemp("", "popcover"); err != nil {
			return "", fmt.Errorf("cloud: creating temporary upload directory: %w", err)
		}
	}
	required, _ := companions(path)
	for _, f := range append([]string{path}, required...) {
		u.files = append(u.files, [2]string{filepath.Join(u.dir, filepath.Base(f)), f})
	}
	return filepath.Join(u.dir, filepath.Base(path)), nil
}

// Upload copies the local files prepared by MaybeUpload to blob storage.
func (u *Uploader) Upload(ctx context.Context) error {
	for _, files := range u.files {
		if err := u.upload(ctx, files[0], files[1]); err != nil {
			return err
		}
	}
	return nil
}

func (u *Uploader) upload(ctx context.Context, local, dst string) error {
	r, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("cloud: opening file '%s' for upload: %w", local, err)
	}
	defer r.Close()
	bucketName, key, err := splitBlob(dst)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("cloud: opening bucket to upload file '%s': %w", dst, err)
	}
	defer closeBucket(bucket)
	return writeBlob(ctx, bucket, key, r)
}

// Cleanup removes the temporary upload directory.
func (u *Uploader) Cleanup() error {
	if u.dir == "" {
		return nil
	}
	return os.RemoveAll(u.dir)
}
