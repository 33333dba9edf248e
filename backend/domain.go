package backend

import (
	"fmt"
	"sort"
	"strings"
)

type BackendType string

const (
	LOCALFSBackend BackendType = "localfs"
	MemoryBackend  BackendType = "memory"
	LevelDBBackend BackendType = "leveldb"
	S3Backend      BackendType = "s3"
	UnknownBackend BackendType = "unknown"
)

var backends = map[BackendType]struct{}{
	LOCALFSBackend: {},
	MemoryBackend:  {},
	LevelDBBackend: {},
	S3Backend:      {},
}

func IsBackendTypeValid(bt BackendType) bool {
	_, ok := backends[bt]
	return ok
}

func ParseBackendType(s string) (BackendType, error) {
	bt := BackendType(strings.ToLower(strings.TrimSpace(s)))
	if bt == "" {
		return LOCALFSBackend, nil
	}
	if !IsBackendTypeValid(bt) {
		return UnknownBackend, fmt.Errorf("unknown backend %q, must be one of [%s]", s, strings.Join(BackendNames(), ", "))
	}
	return bt, nil
}

func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for bt := range backends {
		names = append(names, string(bt))
	}
	sort.Strings(names)
	return names
}
