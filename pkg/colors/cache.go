// Package colors gives every task owner a stable Google Calendar event colour.
package colors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	cacheFile = "owner_colors.json"
	maxColors = 11
	// NoOwnerColor is graphite.
	NoOwnerColor = "8"
)

// Claim is the colour held by one owner and when it was last used.
type Claim struct {
	ColorID  string    `json:"color_id"`
	LastUsed time.Time `json:"last_used"`
}

// ColorCache hands out the 11 event colours, recycling the least recently
// used one when all are taken. Owners match case-insensitively.
type ColorCache struct {
	path   string
	claims map[string]*Claim
	dirty  bool
	now    func() time.Time
}

func NewColorCache(dir string) (*ColorCache, error) {
	c := &ColorCache{
		path:   filepath.Join(dir, cacheFile),
		claims: map[string]*Claim{},
		now:    time.Now,
	}
	if err := c.Load(); err != nil {
		return nil, err
	}
	return c, nil
}

func key(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}

func (c *ColorCache) Load() error {
	b, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	claims := map[string]*Claim{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return fmt.Errorf("decoding color cache %s: %w", c.path, err)
	}
	c.claims = claims
	return nil
}

func (c *ColorCache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("creating color cache directory: %w", err)
	}
	b, err := json.MarshalIndent(c.claims, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, b, 0600); err != nil {
		return fmt.Errorf("writing color cache: %w", err)
	}
	c.dirty = false
	return nil
}

// Lookup returns owner's colour without claiming one.
func (c *ColorCache) Lookup(owner string) (string, bool) {
	cl, ok := c.claims[key(owner)]
	if !ok {
		return "", false
	}
	return cl.ColorID, true
}

// GetColorID returns the colour of owner, claiming one on first use.
func (c *ColorCache) GetColorID(owner string) string {
	k := key(owner)
	if k == "" {
		return NoOwnerColor
	}
	if cl, ok := c.claims[k]; ok {
		cl.LastUsed = c.now()
		c.dirty = true
		return cl.ColorID
	}
	id := c.free()
	c.claims[k] = &Claim{ColorID: id, LastUsed: c.now()}
	c.dirty = true
	return id
}

// free returns an unclaimed colour, evicting the least recently used owner
// when there is none.
func (c *ColorCache) free() string {
	used := make(map[string]bool, len(c.claims))
	for _, cl := range c.claims {
		used[cl.ColorID] = true
	}
	for i := 1; i <= maxColors; i++ {
		if id := strconv.Itoa(i); !used[id] {
			return id
		}
	}

	var lru string
	for k, cl := range c.claims {
		if lru == "" || cl.LastUsed.Before(c.claims[lru].LastUsed) ||
			(cl.LastUsed.Equal(c.claims[lru].LastUsed) && k < lru) {
			lru = k
		}
	}
	id := c.claims[lru].ColorID
	delete(c.claims, lru)
	return id
}
