package main

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"hash"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

//go:embed runtime
var runtimeFS embed.FS

const (
	RUNTIME_DIR = "runtime"
	OBJ_SUFFIX  = ".o"
	C_STD       = "-std=c11"
	FPIC        = "-fPIC"
	OS_WINDOWS  = "windows"
)

// isHashDir reports whether name looks like a cache entry: an 8-char hex
// string, matching the short-hash directory format.
func isHashDir(name string) bool {
	if len(name) != 8 {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}

// runtimeCompileFlags returns the C compiler flags for the runtime.
// Used by both compileRuntime and metadataHash to keep them in sync.
func runtimeCompileFlags(cfg *Config) []string {
	flags := []string{cfg.OptLevel, C_STD}
	if runtime.GOOS != OS_WINDOWS {
		flags = append(flags, FPIC)
	}
	return flags
}

// metadataHash mixes in everything besides source text that affects the
// compiled runtime: compiler, flags, and platform.
func metadataHash(h hash.Hash, cfg *Config) {
	h.Write([]byte(cfg.CC))
	for _, flag := range runtimeCompileFlags(cfg) {
		h.Write([]byte(flag))
	}
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))
}

// runtimeInfo hashes the embedded runtime sources and counts top-level
// .c files, which are the ones compileRuntime builds. Returns the short
// hash used as the cache directory name and the full hash used to detect
// collisions.
func runtimeInfo(cfg *Config) (shortHash, fullHash string, srcCount int, err error) {
	h := sha256.New()
	metadataHash(h, cfg)
	err = fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			data, readErr := runtimeFS.ReadFile(path)
			if readErr != nil {
				return readErr
			}
			h.Write(data)
			if strings.HasSuffix(path, ".c") && filepath.Dir(path) == RUNTIME_DIR {
				srcCount++
			}
		}
		return nil
	})
	if err != nil {
		return "", "", 0, fmt.Errorf("walk embedded runtime: %w", err)
	}
	fullHash = hex.EncodeToString(h.Sum(nil))
	shortHash = fullHash[:8]
	return shortHash, fullHash, srcCount, nil
}

// extractRuntime writes the embedded runtime files to rtDir.
func extractRuntime(rtDir string) error {
	if err := os.MkdirAll(rtDir, 0755); err != nil {
		return fmt.Errorf("create runtime dir: %w", err)
	}
	return fs.WalkDir(runtimeFS, RUNTIME_DIR, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}
		relPath, _ := filepath.Rel(RUNTIME_DIR, path)
		destPath := filepath.Join(rtDir, relPath)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		data, err := runtimeFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", path, err)
		}
		return os.WriteFile(destPath, data, 0644)
	})
}

// compileRuntime compiles the .c files in rtDir and returns the .o paths.
func compileRuntime(rtDir string, cfg *Config) ([]string, error) {
	rtSrcs, err := filepath.Glob(filepath.Join(rtDir, "*.c"))
	if err != nil {
		return nil, fmt.Errorf("glob runtime sources: %w", err)
	}
	if len(rtSrcs) == 0 {
		return nil, fmt.Errorf("no runtime .c files found under %s", rtDir)
	}

	var rtObjs []string
	for _, src := range rtSrcs {
		outObj := filepath.Join(rtDir, filepath.Base(src)+OBJ_SUFFIX)
		args := append(runtimeCompileFlags(cfg), "-I", rtDir, "-c", src, "-o", outObj)
		if out, err := exec.Command(cfg.CC, args...).CombinedOutput(); err != nil {
			return nil, fmt.Errorf("compile %s: %v\n%s", src, err, out)
		}
		rtObjs = append(rtObjs, outObj)
	}
	return rtObjs, nil
}

// cleanupOldRuntimes removes stale cache entries. Only directories older
// than minAge seconds are deleted, and the keep most recent always stay,
// so a concurrent process's runtime dir is never pulled out from under it.
func cleanupOldRuntimes(runtimeDir string, keep int, minAge int64) {
	entries, err := os.ReadDir(runtimeDir)
	if err != nil || len(entries) <= keep {
		return
	}

	type dirInfo struct {
		name  string
		mtime int64
	}
	var dirs []dirInfo
	for _, e := range entries {
		if e.IsDir() && isHashDir(e.Name()) {
			if info, err := e.Info(); err == nil {
				dirs = append(dirs, dirInfo{e.Name(), info.ModTime().Unix()})
			}
		}
	}
	if len(dirs) <= keep {
		return
	}

	cutoff := time.Now().Unix() - minAge
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime < dirs[j].mtime })
	for i := 0; i < len(dirs)-keep; i++ {
		if dirs[i].mtime < cutoff {
			path := filepath.Join(runtimeDir, dirs[i].name)
			if err := os.RemoveAll(path); err != nil {
				fmt.Printf("warning: failed to remove old runtime %s: %v\n", path, err)
			}
		}
	}
}

// prepareRuntime extracts and compiles the embedded runtime, caching the
// objects under a content-hash directory. A file lock makes concurrent
// invocations see either a fully built runtime or build it themselves.
func prepareRuntime(cacheDir string, cfg *Config) ([]string, error) {
	runtimeDir := filepath.Join(cacheDir, RUNTIME_DIR)
	if err := os.MkdirAll(runtimeDir, 0755); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}

	lock := flock.New(filepath.Join(runtimeDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire runtime lock: %w", err)
	}
	defer lock.Unlock()

	shortHash, fullHash, srcCount, err := runtimeInfo(cfg)
	if err != nil {
		return nil, err
	}
	rtDir := filepath.Join(runtimeDir, shortHash)
	hashFile := filepath.Join(rtDir, ".hash")

	// the stored full hash doubles as a completion marker
	if rtObjs, err := filepath.Glob(filepath.Join(rtDir, "*"+OBJ_SUFFIX)); err == nil && len(rtObjs) == srcCount {
		if storedHash, err := os.ReadFile(hashFile); err == nil && string(storedHash) == fullHash {
			return rtObjs, nil
		}
		os.RemoveAll(rtDir)
	}

	// keep 5 most recent entries, delete only those older than a week
	cleanupOldRuntimes(runtimeDir, 5, 7*24*60*60)

	if err := extractRuntime(rtDir); err != nil {
		return nil, err
	}
	rtObjs, err := compileRuntime(rtDir, cfg)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(hashFile, []byte(fullHash), 0644); err != nil {
		return nil, fmt.Errorf("write hash file: %w", err)
	}
	return rtObjs, nil
}
