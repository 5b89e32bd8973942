package vfs

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLFS stores files as rows in a SQLite database, claiming paths
// under a volume prefix such as "sql:". It shares the MemFS model of
// implicit directories.
type SQLFS struct {
	prefix string
	db     *sql.DB
	mu     sync.Mutex
}

// NewSQLFS opens (or creates) a SQLite-backed filesystem at dbPath for
// the given volume prefix.
func NewSQLFS(prefix, dbPath string) (*SQLFS, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		mode INTEGER NOT NULL,
		mtime INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &SQLFS{prefix: prefix, db: db}, nil
}

// Close closes the database connection.
func (s *SQLFS) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLFS) Name() string { return "sqlite(" + s.prefix + ")" }

func (s *SQLFS) Accepts(path string) bool {
	return strings.HasPrefix(path, s.prefix)
}

func (s *SQLFS) Stat(path string) (fs.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var size int64
	var mode fs.FileMode
	var mtime int64
	err := s.db.QueryRow("SELECT length(data), mode, mtime FROM files WHERE path = ?", path).
		Scan(&size, &mode, &mtime)
	if err == sql.ErrNoRows {
		if s.isDirLocked(path) {
			return memInfo{name: tailOf(path), mode: fs.ModeDir | 0o755}, nil
		}
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	return memInfo{name: tailOf(path), size: size, mode: mode, mtime: time.Unix(mtime, 0)}, nil
}

func (s *SQLFS) isDirLocked(path string) bool {
	if path == s.prefix {
		return true
	}
	var one int
	err := s.db.QueryRow("SELECT 1 FROM files WHERE path LIKE ? LIMIT 1", path+"/%").Scan(&one)
	return err == nil
}

func (s *SQLFS) Open(path string, flag int, perm fs.FileMode) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []byte
	err := s.db.QueryRow("SELECT data FROM files WHERE path = ?", path).Scan(&data)
	if err == sql.ErrNoRows {
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
		}
		data = nil
	} else if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	f := &sqlFile{fs: s, path: path, perm: perm}
	if flag&os.O_TRUNC == 0 {
		f.data = data
	}
	if flag&os.O_APPEND != 0 {
		f.off = int64(len(f.data))
	}
	return f, nil
}

func (s *SQLFS) writeFile(path string, data []byte, perm fs.FileMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data == nil {
		// A nil slice would bind as NULL and trip the NOT NULL
		// constraint on empty files.
		data = []byte{}
	}
	_, err := s.db.Exec(
		"INSERT INTO files (path, data, mode, mtime) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT(path) DO UPDATE SET data = excluded.data, mtime = excluded.mtime",
		path, data, uint32(perm), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

func (s *SQLFS) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("remove %q: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	return nil
}

func (s *SQLFS) Rename(oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("UPDATE files SET path = ? WHERE path = ?", newPath, oldPath)
	if err != nil {
		return fmt.Errorf("rename %q: %w", oldPath, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%q: %w", oldPath, ErrNotFound)
	}
	return nil
}

func (s *SQLFS) Mkdir(path string, perm fs.FileMode) error {
	// Directories are implicit.
	return nil
}

func (s *SQLFS) MatchInDirectory(dir, pattern string, types GlobTypes) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := dir
	if !strings.HasSuffix(prefix, "/") && prefix != s.prefix {
		prefix += "/"
	}
	rows, err := s.db.Query("SELECT path FROM files WHERE path LIKE ?", prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", dir, err)
	}
	defer rows.Close()
	seen := make(map[string]bool)
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		rest := name[len(prefix):]
		entry := rest
		isDir := false
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			entry = rest[:idx]
			isDir = true
		}
		if seen[entry] || !matchGlob(pattern, entry) || !types.matches(isDir) {
			continue
		}
		seen[entry] = true
		out = append(out, prefix+entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// sqlFile buffers one open file in memory and writes it back on close.
type sqlFile struct {
	memFile
	fs   *SQLFS
	path string
	perm fs.FileMode
}

func (f *sqlFile) Name() string { return f.path }

func (f *sqlFile) Close() error {
	return f.fs.writeFile(f.path, f.data, f.perm)
}
