// Package storage keeps the crawl progress of every product URL in a JSON
// file so an interrupted run can resume.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
	StatusFailed    Status = "failed"
)

var ErrLinkNotFound = errors.New("link not found")

type ProductLink struct {
	URL       string    `json:"url"`
	GoodsNo   string    `json:"goods_no,omitempty"`
	ProductID int64     `json:"product_id,omitempty"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Done reports whether the link needs no further crawling.
func (l *ProductLink) Done() bool {
	return l.Status == StatusCommitted || l.Status == StatusRejected
}

type LinkStorage struct {
	mu       sync.RWMutex
	fs       afero.Fs
	links    map[string]*ProductLink
	filename string
}

func NewLinkStorage(fs afero.Fs, filename string) (*LinkStorage, error) {
	ls := &LinkStorage{
		fs:       fs,
		links:    make(map[string]*ProductLink),
		filename: filename,
	}

	if err := ls.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	return ls, nil
}

// AddBatch registers urls as pending. Known urls keep their state.
func (ls *LinkStorage) AddBatch(urls []string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	for _, url := range urls {
		if url == "" {
			continue
		}
		if _, ok := ls.links[url]; ok {
			continue
		}
		ls.links[url] = &ProductLink{
			URL:       url,
			Status:    StatusPending,
			AddedAt:   now,
			UpdatedAt: now,
		}
	}

	return ls.save()
}

func (ls *LinkStorage) Get(url string) (*ProductLink, bool) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	link, ok := ls.links[url]
	if !ok {
		return nil, false
	}
	cp := *link
	return &cp, true
}

// GetPending returns the urls still to crawl in the order they were added.
func (ls *LinkStorage) GetPending() []*ProductLink {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	var pending []*ProductLink
	for _, link := range ls.links {
		if !link.Done() {
			cp := *link
			pending = append(pending, &cp)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].AddedAt.Before(pending[j].AddedAt) ||
			pending[i].AddedAt.Equal(pending[j].AddedAt) && pending[i].URL < pending[j].URL
	})
	return pending
}

func (ls *LinkStorage) MarkCommitted(url, goodsNo string, productID int64) error {
	return ls.update(url, func(l *ProductLink) {
		l.Status = StatusCommitted
		l.GoodsNo = goodsNo
		l.ProductID = productID
		l.Error = ""
	})
}

func (ls *LinkStorage) MarkRejected(url string, cause error) error {
	return ls.update(url, func(l *ProductLink) {
		l.Status = StatusRejected
		l.Error = errString(cause)
	})
}

func (ls *LinkStorage) MarkFailed(url string, cause error) error {
	return ls.update(url, func(l *ProductLink) {
		l.Status = StatusFailed
		l.Error = errString(cause)
	})
}

func (ls *LinkStorage) GetStats() map[Status]int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	stats := make(map[Status]int)
	for _, link := range ls.links {
		stats[link.Status]++
	}
	return stats
}

func (ls *LinkStorage) update(url string, fn func(*ProductLink)) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	link, ok := ls.links[url]
	if !ok {
		return fmt.Errorf("%w: %s", ErrLinkNotFound, url)
	}

	fn(link)
	link.Attempts++
	link.UpdatedAt = time.Now()

	return ls.save()
}

func (ls *LinkStorage) save() error {
	data, err := json.MarshalIndent(ls.links, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := ls.filename + ".tmp"
	if err := afero.WriteFile(ls.fs, tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}

	return ls.fs.Rename(tmpFile, ls.filename)
}

func (ls *LinkStorage) load() error {
	data, err := afero.ReadFile(ls.fs, ls.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &ls.links)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
