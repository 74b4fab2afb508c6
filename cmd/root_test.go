package cmd

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/sheet"
	"github.com/spigell/community-ranker/internal/storage"
)

const exampleConfig = `
data:
  source: minio
  object: communities/latest.xlsx
top-n: 5
disabled-filters: [age]
storage:
  bucket: community-data
  endpoint: localhost:9000
  use-ssl: false
  access-key-file: /run/secrets/minio-access
server:
  allowed-origins: [https://homes.example.com]
  timeout: 5s
log:
  file: /var/log/community-ranker.log
`

func TestConfigDecoding(t *testing.T) {
	t.Setenv("COMMUNITY_RANKER_STORAGE_REGION", "us-west-2")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(exampleConfig)); err != nil {
		t.Fatalf("read config: %v", err)
	}

	var got Config
	if err := v.Unmarshal(&got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := Config{
		Data:            DataConfig{Source: "minio", Object: "communities/latest.xlsx"},
		TopN:            5,
		DisabledFilters: []string{"age"},
		Storage: storage.Config{
			Type:          storage.TypeFile,
			Bucket:        "community-data",
			Region:        "us-west-2",
			Endpoint:      "localhost:9000",
			AccessKeyFile: "/run/secrets/minio-access",
		},
		Server: ServerConfig{
			Address:        ":8080",
			AllowedOrigins: []string{"https://homes.example.com"},
			Timeout:        5 * time.Second,
		},
		Log: LogConfig{File: "/var/log/community-ranker.log"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSource(t *testing.T) {
	t.Parallel()

	loader := sheet.NewLoader(community.DefaultSchema(), nil)
	ctx := context.Background()

	if _, err := newSource(ctx, &Config{Data: DataConfig{Source: sourceCSV, NeedsCSV: "needs.csv"}}, loader, zap.NewNop()); err == nil {
		t.Fatal("expected an error without the wants csv")
	}

	src, err := newSource(ctx, &Config{Data: DataConfig{Source: "file", Object: "data.xlsx"}}, loader, zap.NewNop())
	if err != nil {
		t.Fatalf("newSource() error = %v", err)
	}
	s, ok := src.(*sheet.StorageSource)
	if !ok || s.Key != "data.xlsx" {
		t.Fatalf("unexpected source %#v", src)
	}
	if _, ok := s.Storage.(*storage.FileStorage); !ok {
		t.Fatalf("expected file storage, got %T", s.Storage)
	}

	if _, err := newSource(ctx, &Config{Data: DataConfig{Source: "ftp"}}, loader, zap.NewNop()); err == nil {
		t.Fatal("expected an error for an unknown source")
	}
}

func TestDumpToTmpFile(t *testing.T) {
	t.Parallel()

	name, err := dumpToTmpFile(map[string]int{"n_communities_total": 8})
	if err != nil {
		t.Fatalf("dumpToTmpFile() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(name) })

	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"n_communities_total": 8`)) {
		t.Fatalf("unexpected dump %s", data)
	}
}
