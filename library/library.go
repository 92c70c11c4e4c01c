// Package library resolves MIDI sources: local files, directories of
// files, and s3:// objects fetched to a temp file before parsing.
package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/mbaxter/joybeat/constants"
	"github.com/pkg/errors"
)

// IsRemote reports whether the source needs fetching before parse.
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "s3://")
}

// Resolve turns a source argument into a local path. Remote sources are
// downloaded to a temp file; cleanup removes it and is always non-nil.
func Resolve(src string) (string, func(), error) {
	if !IsRemote(src) {
		return src, func() {}, nil
	}

	bucket, key, err := ParseS3URI(src)
	if err != nil {
		return "", func() {}, err
	}

	f, err := os.CreateTemp("", "joybeat-*.mid")
	if err != nil {
		return "", func() {}, errors.Wrap(err, "creating temp file")
	}
	cleanup := func() { os.Remove(f.Name()) }

	sess, err := session.NewSession(&aws.Config{Region: aws.String(constants.GetAWSRegion())})
	if err != nil {
		f.Close()
		cleanup()
		return "", func() {}, errors.Wrap(err, "creating aws session")
	}

	downloader := s3manager.NewDownloader(sess)
	_, err = downloader.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	f.Close()
	if err != nil {
		cleanup()
		return "", func() {}, errors.Wrapf(err, "downloading %v", src)
	}
	return f.Name(), cleanup, nil
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", errors.Errorf("invalid s3 uri: %v", uri)
	}
	return bucket, key, nil
}

// ScanDir walks a directory collecting MIDI file paths, up to maxNum
// (0 means no limit).
func ScanDir(root string, maxNum int) []string {
	var res []string
	filepath.WalkDir(root, func(s string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.HasSuffix(s, ".mid") || strings.HasSuffix(s, ".midi") {
			if maxNum == 0 || len(res) < maxNum {
				res = append(res, s)
			}
		}
		return nil
	})
	return res
}
