package generator

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// mergeStats counts what a merge did.
type mergeStats struct {
	copied   int
	shadowed int
}

// skipFunc reports whether the entry at rel (slash-separated, relative to
// the merged root) must not be staged.
type skipFunc func(rel string) bool

// isManifest matches the manifest, which the tool generates itself.
func isManifest(rel string) bool {
	return strings.EqualFold(rel, "META-INF/MANIFEST.MF")
}

// isArchiveMetadata matches the manifest and the signature files of a
// merged archive. Signatures no longer match once entries are repacked.
func isArchiveMetadata(rel string) bool {
	if isManifest(rel) {
		return true
	}
	dir, name := path.Split(rel)
	if !strings.EqualFold(dir, "META-INF/") {
		return false
	}
	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "SIG-") {
		return true
	}
	switch path.Ext(upper) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

// mergeTree copies every regular file under src into dst, keeping files
// that already exist in dst. Symlinks are followed.
func mergeTree(src, dst string, skip skipFunc) (mergeStats, error) {
	var st mergeStats
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		slashRel := filepath.ToSlash(rel)
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if skip != nil && skip(slashRel) {
			return nil
		}

		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		fileSt, err := mergeFile(p, target)
		st.copied += fileSt.copied
		st.shadowed += fileSt.shadowed
		return err
	})
	return st, err
}

// mergeFile copies src to dst unless dst exists.
func mergeFile(src, dst string) (mergeStats, error) {
	if _, err := os.Lstat(dst); err == nil {
		return mergeStats{shadowed: 1}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return mergeStats{}, err
	}
	if err := copyFile(src, dst); err != nil {
		return mergeStats{}, err
	}
	return mergeStats{copied: 1}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
