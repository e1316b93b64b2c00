// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backup

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	s3fs "github.com/looplj/afero-s3"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/olegiv/ngocms/internal/util"
)

// Storage providers.
const (
	ProviderLocal    = "local"
	ProviderS3       = "s3"
	ProviderSupabase = "supabase"
)

// StorageOptions selects and configures the file system backups live on.
type StorageOptions struct {
	Provider string
	Dir      string // local base directory

	Bucket         string
	Region         string
	Endpoint       string
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool
	Prefix         string // key prefix inside the bucket
}

// NewFs builds the backup file system.
func NewFs(ctx context.Context, opts StorageOptions) (afero.Fs, error) {
	switch opts.Provider {
	case "", ProviderLocal:
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating backup directory: %w", err)
		}
		return afero.NewBasePathFs(afero.NewOsFs(), opts.Dir), nil
	case ProviderS3, ProviderSupabase:
		return newS3Fs(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", opts.Provider)
	}
}

func newS3Fs(ctx context.Context, opts StorageOptions) (afero.Fs, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			awscredentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Supabase storage only serves path-style requests.
	pathStyle := opts.ForcePathStyle || opts.Provider == ProviderSupabase
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = lo.ToPtr(opts.Endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	var fs afero.Fs = s3fs.NewFsFromClient(opts.Bucket, client)
	if prefix := strings.Trim(opts.Prefix, "/"); prefix != "" {
		fs = afero.NewBasePathFs(fs, "/"+prefix)
	}
	return fs, nil
}

// Info describes a stored backup file.
type Info struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
	Type    Type      `json:"type,omitempty"`
}

const (
	namePrefix = "backup-"
	nameSuffix = ".json"
	nameTime   = "2006-01-02T15-04-05"
)

// FileName returns a new backup file name for the given type and time.
func FileName(t Type, at time.Time) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%s-%s-%s%s", namePrefix, t, at.UTC().Format(nameTime), short, nameSuffix)
}

// ValidateName rejects names that could leave the backup directory or
// that were not produced by FileName's naming scheme.
func ValidateName(name string) error {
	switch {
	case name == "",
		name != path.Base(name),
		strings.ContainsAny(name, `/\`),
		strings.HasPrefix(name, "."),
		util.EscapesRoot(name),
		!strings.HasPrefix(name, namePrefix),
		!strings.HasSuffix(name, nameSuffix):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// typeFromName extracts the backup type from a file name, or "" when the
// name does not carry a known type.
func typeFromName(name string) Type {
	rest, ok := strings.CutPrefix(name, namePrefix)
	if !ok {
		return ""
	}
	typ, _, _ := strings.Cut(rest, "-")
	t, err := ParseType(typ)
	if err != nil {
		return ""
	}
	return t
}

// listFiles returns the stored backups, newest first.
func listFiles(fs afero.Fs) ([]Info, error) {
	files, err := afero.ReadDir(fs, "/")
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	out := []Info{}
	for _, f := range files {
		if f.IsDir() || ValidateName(f.Name()) != nil {
			continue
		}
		out = append(out, Info{
			Name:    f.Name(),
			Size:    f.Size(),
			ModTime: f.ModTime().UTC(),
			Type:    typeFromName(f.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}
