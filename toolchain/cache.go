// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package toolchain

import (
	"encoding/hex"
	"os"

	"golang.org/x/crypto/blake2b"
)

// Cache tracks the content hash of the last LLIR module a given stem was
// compiled from, so a repeated build of unchanged LLIR can skip re-running
// llc/cc (C10), the same hash-to-dedupe shape as ion/blockfmt's blake2b use
// for index signing.
type Cache struct {
	dir string
}

// NewCache opens a build cache rooted at dir (created if absent).
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Hash returns the hex-encoded blake2b-256 digest of data.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Stamp records the digest of ir as the last one compiled for stem.
func (c *Cache) Stamp(stem string, ir []byte) error {
	return os.WriteFile(c.stampPath(stem), []byte(Hash(ir)), 0o644)
}

// Fresh reports whether ir's digest matches the last stamp recorded for
// stem, meaning an existing binary next to stem is still valid and the
// llc/cc stages may be skipped.
func (c *Cache) Fresh(stem string, ir []byte) bool {
	want := Hash(ir)
	got, err := os.ReadFile(c.stampPath(stem))
	if err != nil {
		return false
	}
	return string(got) == want
}

func (c *Cache) stampPath(stem string) string {
	return c.dir + "/" + Hash([]byte(stem)) + ".stamp"
}
