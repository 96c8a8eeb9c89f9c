// Package memstore is an in-memory directory store built on skip lists.
//
// The master table maps entry ids to encoded records. Each configured
// attribute gets an equality index from normalized value to id, and the rdn
// index maps (parent id, rdn) to the entry id together with its children and
// descendant counts.
package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/KevoDB/dircore/pkg/common/log"
	"github.com/KevoDB/dircore/pkg/config"
	"github.com/KevoDB/dircore/pkg/cursor"
	"github.com/KevoDB/dircore/pkg/entry"
	"github.com/KevoDB/dircore/pkg/stats"
	"github.com/KevoDB/dircore/pkg/store"
	"github.com/KevoDB/dircore/pkg/store/memtable"
	"github.com/KevoDB/dircore/pkg/telemetry"
)

// ErrClosed is returned by every operation on a closed store
var ErrClosed = errors.New("store is closed")

var _ store.Store = (*Store)(nil)

// Options configures a Store
type Options struct {
	Logger    log.Logger
	Telemetry telemetry.Telemetry
	Stats     stats.Collector
}

// Option mutates Options
type Option func(*Options)

// WithLogger sets the store logger
func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTelemetry sets the telemetry used for spans and store metrics
func WithTelemetry(t telemetry.Telemetry) Option {
	return func(o *Options) { o.Telemetry = t }
}

// WithStats sets the statistics collector
func WithStats(c stats.Collector) Option {
	return func(o *Options) { o.Stats = c }
}

// Store is an in-memory store.Store. Mutations are serialized; cursors read
// the skip lists without taking the store lock.
type Store struct {
	cfg   *config.Config
	codec *entry.Codec

	// master maps id bytes to record frames
	master *memtable.SkipList
	rdn    *rdnIndex
	eq     map[string]*equalityIndex

	mu      sync.RWMutex
	dns     map[string]entry.ID
	parents map[entry.ID]entry.ID
	rdnKeys map[entry.ID]store.ParentIDAndRdn

	logger  log.Logger
	tel     telemetry.Telemetry
	metrics Metrics
	stats   stats.Collector

	closed atomic.Bool
}

// New creates an empty store configured by cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.NewNoop()
	}
	if o.Stats == nil {
		o.Stats = stats.NewCollector()
	}

	codec, err := entry.NewCodec(cfg.RecordCompression, cfg.VerifyChecksums)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create record codec")
	}

	s := &Store{
		cfg:     cfg,
		codec:   codec,
		master:  memtable.NewSkipList(),
		eq:      make(map[string]*equalityIndex),
		dns:     make(map[string]entry.ID),
		parents: make(map[entry.ID]entry.ID),
		rdnKeys: make(map[entry.ID]store.ParentIDAndRdn),
		logger:  log.OrNop(o.Logger).WithField("component", "memstore"),
		tel:     o.Telemetry,
		metrics: NewMetrics(o.Telemetry),
		stats:   o.Stats,
	}
	s.rdn = &rdnIndex{list: memtable.NewSkipList()}

	for _, attr := range cfg.NormalizedIndexedAttributes() {
		s.eq[attr] = &equalityIndex{
			attr:  attr,
			list:  memtable.NewSkipList(),
			bloom: newBloomFilter(cfg.BloomExpectedItems, cfg.BloomFalsePositive),
			store: s,
		}
	}

	s.logger.Debug("created store with %d equality indexes, %s records", len(s.eq), codec.Compression())
	return s, nil
}

// Config returns the configuration the store was created with
func (s *Store) Config() *config.Config {
	return s.cfg
}

// AddContextEntry adds the root of a naming context. Every rdn of its DN is
// kept under the root parent id, so the entry needs no parent in the store.
func (s *Store) AddContextEntry(e *entry.Entry) (entry.ID, error) {
	return s.add(e, true)
}

// Add adds e below its parent, which must already be present. An entry with
// a nil id is assigned a fresh one. The returned id is the stored id.
func (s *Store) Add(e *entry.Entry) (entry.ID, error) {
	return s.add(e, false)
}

func (s *Store) add(e *entry.Entry, contextEntry bool) (id entry.ID, err error) {
	if s.closed.Load() {
		return entry.ID{}, ErrClosed
	}
	if e == nil {
		return entry.ID{}, pkgerrors.New("nil entry")
	}

	ctx, span := s.tel.StartSpan(context.Background(), "memstore.add",
		attribute.String("dn", e.DN),
		attribute.Bool("context_entry", contextEntry),
	)
	defer span.End()

	s.stats.TrackOperation(stats.OpAdd)
	start := time.Now()
	defer func() { s.finish(ctx, stats.OpAdd, telemetry.OpTypeAdd, start, err) }()

	dn, err := entry.ParseDN(e.DN)
	if err != nil {
		return entry.ID{}, pkgerrors.Wrapf(err, "parse dn %q", e.DN)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := dn.Normalized()
	if _, ok := s.dns[norm]; ok {
		return entry.ID{}, pkgerrors.Wrap(store.ErrExists, e.DN)
	}

	parentID := entry.RootParentID
	rdns := dn.RDNs
	if !contextEntry {
		parent := dn.Parent()
		pid, ok := s.dns[parent.Normalized()]
		if parent.IsEmpty() || !ok {
			return entry.ID{}, pkgerrors.Wrap(store.ErrNoParent, e.DN)
		}
		parentID = pid
		rdns = []string{dn.RDN()}
	}

	stored := e.Clone()
	if stored.ID == (entry.ID{}) {
		stored.ID = entry.NewID()
	}
	id = stored.ID
	if _, ok := s.rdnKeys[id]; ok {
		return entry.ID{}, pkgerrors.Wrapf(store.ErrExists, "id %s", id)
	}

	frame, err := s.codec.Encode(stored)
	if err != nil {
		return entry.ID{}, err
	}
	s.master.Insert(id[:], frame)
	s.stats.TrackRecordBytes(true, uint64(len(frame)))

	key := store.ParentIDAndRdn{ParentID: parentID, Rdns: rdns}
	s.rdn.list.Insert(key.EncodeKey(), key.EncodeValue(id))
	s.rdnKeys[id] = key
	s.parents[id] = parentID
	s.dns[norm] = id

	for attr, ix := range s.eq {
		for _, v := range stored.Get(attr) {
			ix.insert(entry.NormalizeValue(v), id)
		}
	}

	s.adjustAncestors(parentID, 1)

	s.logger.Debug("added %s as %s", e.DN, id)
	return id, nil
}

// Delete removes a leaf entry.
func (s *Store) Delete(id entry.ID) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}

	ctx, span := s.tel.StartSpan(context.Background(), "memstore.delete",
		attribute.String("id", id.String()),
	)
	defer span.End()

	s.stats.TrackOperation(stats.OpDelete)
	start := time.Now()
	defer func() { s.finish(ctx, stats.OpDelete, telemetry.OpTypeDelete, start, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.rdnKeys[id]
	if !ok {
		return pkgerrors.Wrapf(store.ErrNotFound, "id %s", id)
	}
	if key.NbChildren > 0 {
		return pkgerrors.Wrapf(store.ErrNotLeaf, "id %s has %d children", id, key.NbChildren)
	}

	frame, ok := s.master.Get(id[:])
	if !ok {
		return pkgerrors.Wrapf(store.ErrNotFound, "record for %s", id)
	}
	e, err := s.codec.Decode(frame)
	if err != nil {
		return err
	}

	for attr, ix := range s.eq {
		for _, v := range e.Get(attr) {
			ix.list.Delete([]byte(entry.NormalizeValue(v)), id[:])
		}
	}

	s.rdn.list.Delete(key.EncodeKey(), key.EncodeValue(id))
	s.master.Delete(id[:], frame)

	parentID := s.parents[id]
	delete(s.rdnKeys, id)
	delete(s.parents, id)
	if dn, err := entry.ParseDN(e.DN); err == nil {
		delete(s.dns, dn.Normalized())
	}

	s.adjustAncestors(parentID, -1)

	s.logger.Debug("deleted %s", id)
	return nil
}

// adjustAncestors applies delta to the children count of parentID and to the
// descendant count of parentID and every ancestor above it.
func (s *Store) adjustAncestors(parentID entry.ID, delta int) {
	children := delta
	for id := parentID; id != entry.RootParentID; id = s.parents[id] {
		key, ok := s.rdnKeys[id]
		if !ok {
			s.logger.Error("missing rdn key for ancestor %s", id)
			return
		}

		encoded := key.EncodeKey()
		s.rdn.list.Delete(encoded, key.EncodeValue(id))
		key.NbChildren += children
		key.NbDescendants += delta
		s.rdn.list.Insert(encoded, key.EncodeValue(id))
		s.rdnKeys[id] = key

		children = 0
	}
}

func (s *Store) finish(ctx context.Context, op stats.OperationType, telOp string, start time.Time, err error) {
	elapsed := time.Since(start)
	s.stats.TrackOperationWithLatency(op, uint64(elapsed.Nanoseconds()))
	s.metrics.RecordOperation(ctx, telOp, elapsed, err == nil)
	if err != nil {
		s.stats.TrackError(string(op) + "_error")
		return
	}

	n := s.master.Len()
	s.stats.TrackEntryCount(uint64(n))
	s.metrics.RecordEntryCount(ctx, n)
}

// Lookup loads an entry by id.
func (s *Store) Lookup(id entry.ID) (*entry.Entry, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.stats.TrackOperation(stats.OpLookup)

	frame, ok := s.master.Get(id[:])
	if !ok {
		return nil, pkgerrors.Wrapf(store.ErrNotFound, "id %s", id)
	}
	s.stats.TrackRecordBytes(false, uint64(len(frame)))
	return s.codec.Decode(frame)
}

// LookupDN loads an entry by distinguished name.
func (s *Store) LookupDN(dn string) (*entry.Entry, error) {
	id, err := s.ResolveDN(dn)
	if err != nil {
		return nil, err
	}
	return s.Lookup(id)
}

// ResolveDN returns the id of the entry named dn.
func (s *Store) ResolveDN(dn string) (entry.ID, error) {
	parsed, err := entry.ParseDN(dn)
	if err != nil {
		return entry.ID{}, err
	}

	s.mu.RLock()
	id, ok := s.dns[parsed.Normalized()]
	s.mu.RUnlock()
	if !ok {
		return entry.ID{}, pkgerrors.Wrap(store.ErrNotFound, dn)
	}
	return id, nil
}

// RdnKey returns the rdn index key of id, including its current counts.
func (s *Store) RdnKey(id entry.ID) (store.ParentIDAndRdn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.rdnKeys[id]
	if !ok {
		return store.ParentIDAndRdn{}, pkgerrors.Wrapf(store.ErrNotFound, "id %s", id)
	}
	return key, nil
}

// Count returns the number of entries in the store.
func (s *Store) Count() int {
	return s.master.Len()
}

// MasterScan returns a cursor over every entry in id order.
func (s *Store) MasterScan(opts ...cursor.Option) (cursor.Cursor[store.IndexEntry[entry.ID]], error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.stats.TrackOperation(stats.OpScan)
	return memtable.NewCursor[store.IndexEntry[entry.ID]](s.master, masterCodec{s: s}, memtable.Range{}, "master", opts...), nil
}

// EqualityIndex returns the equality index on attr.
func (s *Store) EqualityIndex(attr string) (store.Index[string], bool) {
	ix, ok := s.eq[entry.NormalizeAttributeName(attr)]
	if !ok {
		return nil, false
	}
	return ix, true
}

// HasIndexOn reports whether attr has an equality index.
func (s *Store) HasIndexOn(attr string) bool {
	_, ok := s.eq[entry.NormalizeAttributeName(attr)]
	return ok
}

// RdnIndex returns the hierarchy index.
func (s *Store) RdnIndex() store.Index[store.ParentIDAndRdn] {
	return s.rdn
}

// Stats returns the store statistics.
func (s *Store) Stats() map[string]interface{} {
	return s.stats.GetStats()
}

// Close releases the record codec. Close is idempotent.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.codec.Close()
	if mErr := s.metrics.Close(); err == nil {
		err = mErr
	}
	return err
}
