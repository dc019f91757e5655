package engine

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mg52/bizsearch/internal/models"
	"github.com/mg52/bizsearch/internal/pkg/keys"
	"github.com/mg52/bizsearch/internal/pkg/symspell"
	"github.com/mg52/bizsearch/internal/pkg/translit"
	"github.com/mg52/bizsearch/internal/pkg/trie"
)

const (
	DefaultMaxExpansions  = 4096
	DefaultPageSize       = 10
	DefaultPopularLimit   = 10
	DefaultShardThreshold = 2048
)

// Store is the persistence the Directory reads records from.
type Store interface {
	ListBusinesses(ctx context.Context) ([]models.Business, error)
	Business(ctx context.Context, id int64) (models.Business, error)
	SaveBusiness(ctx context.Context, b *models.Business, keywordIDs []int64) error
	DeleteBusiness(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	SetAdmin(ctx context.Context, id int64, admin bool) (models.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListKeywords(ctx context.Context) ([]models.Keyword, error)
	Keyword(ctx context.Context, id int64) (models.Keyword, error)
	SaveKeyword(ctx context.Context, k *models.Keyword) error
	DeleteKeyword(ctx context.Context, id int64) error

	IncrementSearch(ctx context.Context, keyword string) (models.PopularSearch, error)
	TopSearches(ctx context.Context, limit int) ([]models.PopularSearch, error)
}

// SearchRequest is one list query as received from a client. Category is
// the raw query-string value; blank means no constraint.
type SearchRequest struct {
	Query    string
	Category string
	Page     int
	PageSize int
	View     string
}

// Directory runs transliterated search over the records of a Store and
// keeps the suggestion index for search-as-you-type.
type Directory struct {
	store  Store
	logger *zap.Logger

	maxExpansions  int
	pageSize       int
	popularLimit   int
	workers        int
	shardThreshold int
	pool           *ants.Pool

	mu      sync.RWMutex
	prefix  *trie.Trie
	fuzzy   *symspell.SymSpell
	popular *keys.Keys // folded terms that came from recorded searches
}

// Option customises a Directory.
type Option func(*Directory)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMaxExpansions caps the number of spellings a query may expand into.
// Zero or less disables the cap.
func WithMaxExpansions(n int) Option {
	return func(d *Directory) { d.maxExpansions = n }
}

func WithPageSize(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

func WithPopularLimit(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.popularLimit = n
		}
	}
}

// WithWorkers sets the size of the worker pool that filters large lists in
// shards. One or less filters on the calling goroutine.
func WithWorkers(n int) Option {
	return func(d *Directory) { d.workers = n }
}

// WithShardThreshold sets the list length from which filtering is sharded.
func WithShardThreshold(n int) Option {
	return func(d *Directory) {
		if n > 0 {
			d.shardThreshold = n
		}
	}
}

// NewDirectory builds a Directory over store. Call Close to release its
// worker pool.
func NewDirectory(store Store, opts ...Option) (*Directory, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	d := &Directory{
		store:          store,
		logger:         zap.NewNop(),
		maxExpansions:  DefaultMaxExpansions,
		pageSize:       DefaultPageSize,
		popularLimit:   DefaultPopularLimit,
		workers:        runtime.GOMAXPROCS(0),
		shardThreshold: DefaultShardThreshold,
		prefix:         trie.NewTrie(),
		fuzzy:          symspell.NewSymSpell(),
		popular:        keys.NewKeys(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers > 1 {
		pool, err := ants.NewPool(d.workers)
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		d.pool = pool
	}
	return d, nil
}

// Close releases the worker pool.
func (d *Directory) Close() {
	if d.pool != nil {
		d.pool.Release()
	}
}

// run executes tasks on the pool and waits for all of them. Tasks the pool
// refuses run on the calling goroutine.
func (d *Directory) run(tasks []func()) {
	if d.pool == nil || len(tasks) < 2 {
		for _, task := range tasks {
			task()
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, task := range tasks {
		job := func() {
			defer wg.Done()
			task()
		}
		if err := d.pool.Submit(job); err != nil {
			job()
		}
	}
	wg.Wait()
}

// filterSharded is FilterView split into contiguous shards that are filtered
// in parallel and concatenated in order.
func filterSharded[T any](d *Directory, records []T, view View[T], rawQuery string, categoryID *int64) []T {
	m := compile(rawQuery)
	if d.pool == nil || len(records) < d.shardThreshold {
		return filterWith(records, view, m, categoryID)
	}

	shards := d.pool.Cap()
	chunkSize := (len(records) + shards - 1) / shards
	parts := make([][]T, 0, shards)
	tasks := make([]func(), 0, shards)
	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		i, chunk, sm := len(parts), records[start:end], m.clone()
		parts = append(parts, nil)
		tasks = append(tasks, func() { parts[i] = filterWith(chunk, view, sm, categoryID) })
	}
	d.run(tasks)

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func foldTerm(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}

// Warm rebuilds the suggestion index from the stored keywords and popular
// searches.
func (d *Directory) Warm(ctx context.Context) error {
	keywords, err := d.store.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("warm keywords: %w", err)
	}
	searches, err := d.store.TopSearches(ctx, -1)
	if err != nil {
		return fmt.Errorf("warm popular searches: %w", err)
	}

	prefix := trie.NewTrie()
	popular := keys.NewKeys()
	words := make([]string, 0, len(keywords)+len(searches))
	for _, k := range keywords {
		prefix.Insert(k.Name, 0)
		words = append(words, foldTerm(k.Name))
	}
	for _, s := range searches {
		prefix.Insert(s.Keyword, int(s.Count))
		words = append(words, foldTerm(s.Keyword))
		popular.Insert(foldTerm(s.Keyword))
	}
	fuzzy := symspell.NewSymSpell()
	fuzzy.LoadDictionary(words)

	d.mu.Lock()
	d.prefix, d.fuzzy, d.popular = prefix, fuzzy, popular
	d.mu.Unlock()

	d.logger.Info("suggestion index warmed",
		zap.Int("keywords", len(keywords)),
		zap.Int("searches", len(searches)),
	)
	return nil
}

func (d *Directory) index() (*trie.Trie, *symspell.SymSpell, *keys.Keys) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.prefix, d.fuzzy, d.popular
}

// checkQuery rejects queries whose expansion would exceed the cap.
func (d *Directory) checkQuery(query string) error {
	if d.maxExpansions <= 0 || translit.Trim(query) == "" {
		return nil
	}
	if n := translit.Count(foldTerm(query)); n > d.maxExpansions {
		return fmt.Errorf("%w: %d spellings, limit %d", ErrQueryTooComplex, n, d.maxExpansions)
	}
	return nil
}

func (d *Directory) pageArgs(req SearchRequest) (int, int) {
	page, size := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = d.pageSize
	}
	return page, size
}

// Candidates returns the spellings query expands into.
func (d *Directory) Candidates(query string) ([]string, error) {
	if err := d.checkQuery(query); err != nil {
		return nil, err
	}
	return translit.Expand(query).Slice(), nil
}

// SearchBusinesses filters the stored businesses through the requested view
// and returns one page of the result.
func (d *Directory) SearchBusinesses(ctx context.Context, req SearchRequest) (Page[models.Business], error) {
	start := time.Now()

	view, err := BusinessView(req.View)
	if err != nil {
		return Page[models.Business]{}, fmt.Errorf("%w: %q", err, req.View)
	}
	category, err := ParseCategory(req.Category)
	if err != nil {
		return Page[models.Business]{}, fmt.Errorf("%w: %q", err, req.Category)
	}
	if err := d.checkQuery(req.Query); err != nil {
		return Page[models.Business]{}, err
	}

	businesses, err := d.store.ListBusinesses(ctx)
	if err != nil {
		return Page[models.Business]{}, err
	}

	matched := filterSharded(d, businesses, view, req.Query, category)
	page, size := d.pageArgs(req)

	d.logger.Debug("business search",
		zap.String("query", req.Query),
		zap.String("view", view.Name),
		zap.Int("scanned", len(businesses)),
		zap.Int("matched", len(matched)),
		zap.Duration("took", time.Since(start)),
	)
	return Paginate(matched, page, size), nil
}

// SearchUsers filters the user directory. Users carry no category, so a
// category constraint leaves nothing.
func (d *Directory) SearchUsers(ctx context.Context, req SearchRequest) (Page[models.User], error) {
	category, err := ParseCategory(req.Category)
	if err != nil {
		return Page[models.User]{}, fmt.Errorf("%w: %q", err, req.Category)
	}
	if err := d.checkQuery(req.Query); err != nil {
		return Page[models.User]{}, err
	}

	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return Page[models.User]{}, err
	}

	matched := filterSharded(d, users, RecordView[models.User](), req.Query, category)
	page, size := d.pageArgs(req)
	return Paginate(matched, page, size), nil
}

// Categories lists categories whose name contains term.
func (d *Directory) Categories(ctx context.Context, term string) ([]models.Category, error) {
	categories, err := d.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByName(categories, func(c models.Category) string { return c.Name }, term), nil
}

// Keywords lists keywords whose name contains term.
func (d *Directory) Keywords(ctx context.Context, term string) ([]models.Keyword, error) {
	keywords, err := d.store.ListKeywords(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByName(keywords, func(k models.Keyword) string { return k.Name }, term), nil
}

// RecordSearch counts one search for keyword and feeds it to suggestions.
func (d *Directory) RecordSearch(ctx context.Context, keyword string) (models.PopularSearch, error) {
	term := foldTerm(keyword)
	if term == "" {
		return models.PopularSearch{}, ErrEmptyKeyword
	}
	ps, err := d.store.IncrementSearch(ctx, term)
	if err != nil {
		return models.PopularSearch{}, err
	}

	prefix, fuzzy, popular := d.index()
	prefix.Insert(term, 1)
	if popular.Insert(term) {
		fuzzy.AddWord(term)
	}
	return ps, nil
}

// PopularBusinesses returns the businesses matched by the most searched
// keywords, most popular keyword first, each business once.
func (d *Directory) PopularBusinesses(ctx context.Context, limit int) ([]models.Business, error) {
	if limit <= 0 {
		limit = d.popularLimit
	}
	searches, err := d.store.TopSearches(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(searches) == 0 {
		return []models.Business{}, nil
	}
	businesses, err := d.store.ListBusinesses(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([][]models.Business, len(searches))
	tasks := make([]func(), 0, len(searches))
	for i, s := range searches {
		if err := d.checkQuery(s.Keyword); err != nil {
			d.logger.Warn("skipping popular search", zap.String("keyword", s.Keyword), zap.Error(err))
			continue
		}
		tasks = append(tasks, func() {
			matches[i] = FilterView(businesses, DirectoryView, s.Keyword, nil)
		})
	}
	d.run(tasks)

	seen := make(map[int64]struct{})
	out := []models.Business{}
	for _, matched := range matches {
		for _, b := range matched {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			out = append(out, b)
		}
	}
	return out, nil
}

// Suggest completes prefix from keyword names and recorded searches. When
// nothing starts with prefix it offers one-edit corrections instead.
func (d *Directory) Suggest(prefix string, limit int) []string {
	if limit <= 0 {
		limit = d.pageSize
	}
	term := foldTerm(prefix)
	if term == "" {
		return []string{}
	}
	completions, fuzzy, _ := d.index()
	if out := completions.SearchPrefix(term, limit); len(out) > 0 {
		return out
	}
	return fuzzy.FuzzySearch(term, limit)
}

func (d *Directory) Business(ctx context.Context, id int64) (models.Business, error) {
	return d.store.Business(ctx, id)
}

func (d *Directory) SaveBusiness(ctx context.Context, b *models.Business, keywordIDs []int64) error {
	return d.store.SaveBusiness(ctx, b, keywordIDs)
}

// BusinessInput is a business together with the ids of its keywords.
type BusinessInput struct {
	Business   models.Business
	KeywordIDs []int64
}

// SaveBusinesses saves each input in order and stops at the first failure,
// returning the businesses saved so far.
func (d *Directory) SaveBusinesses(ctx context.Context, inputs []BusinessInput) ([]models.Business, error) {
	saved := make([]models.Business, 0, len(inputs))
	for i := range inputs {
		b := inputs[i].Business
		if err := d.store.SaveBusiness(ctx, &b, inputs[i].KeywordIDs); err != nil {
			return saved, fmt.Errorf("business %d of %d: %w", i+1, len(inputs), err)
		}
		saved = append(saved, b)
	}
	return saved, nil
}

func (d *Directory) DeleteBusiness(ctx context.Context, id int64) error {
	return d.store.DeleteBusiness(ctx, id)
}

func (d *Directory) SaveUser(ctx context.Context, u *models.User) error {
	return d.store.SaveUser(ctx, u)
}

func (d *Directory) SetAdmin(ctx context.Context, id int64, admin bool) (models.User, error) {
	return d.store.SetAdmin(ctx, id, admin)
}

func (d *Directory) DeleteUser(ctx context.Context, id int64) error {
	return d.store.DeleteUser(ctx, id)
}

func (d *Directory) SaveCategory(ctx context.Context, c *models.Category) error {
	return d.store.SaveCategory(ctx, c)
}

func (d *Directory) DeleteCategory(ctx context.Context, id int64) error {
	return d.store.DeleteCategory(ctx, id)
}

// SaveKeyword stores k and keeps the suggestion index in step with a rename.
func (d *Directory) SaveKeyword(ctx context.Context, k *models.Keyword) error {
	var oldName string
	if k.ID != 0 {
		old, err := d.store.Keyword(ctx, k.ID)
		if err != nil {
			return err
		}
		oldName = old.Name
	}
	if err := d.store.SaveKeyword(ctx, k); err != nil {
		return err
	}

	prefix, fuzzy, popular := d.index()
	defer fuzzy.AddWord(foldTerm(k.Name))

	oldTerm := foldTerm(oldName)
	if oldTerm != "" && oldTerm != foldTerm(k.Name) && !popular.Contains(oldTerm) && !d.termInUse(ctx, oldTerm) {
		fuzzy.DeleteWord(oldTerm)
		if err := prefix.Update(oldName, k.Name); err == nil {
			return nil
		}
	}
	prefix.Insert(k.Name, 0)
	return nil
}

// DeleteKeyword removes the keyword and its suggestion, unless users have
// searched for the same term.
func (d *Directory) DeleteKeyword(ctx context.Context, id int64) error {
	old, err := d.store.Keyword(ctx, id)
	if err != nil {
		return err
	}
	if err := d.store.DeleteKeyword(ctx, id); err != nil {
		return err
	}
	prefix, fuzzy, popular := d.index()
	d.forget(ctx, prefix, fuzzy, popular, old.Name)
	return nil
}

func (d *Directory) forget(ctx context.Context, prefix *trie.Trie, fuzzy *symspell.SymSpell, popular *keys.Keys, name string) {
	term := foldTerm(name)
	if popular.Contains(term) || d.termInUse(ctx, term) {
		return
	}
	if err := prefix.Remove(term); err != nil {
		d.logger.Debug("suggestion not indexed", zap.String("term", term), zap.Error(err))
	}
	fuzzy.DeleteWord(term)
}

// termInUse reports whether a stored keyword still folds to term. A failed
// lookup counts as in use so the suggestion survives until the next Warm.
func (d *Directory) termInUse(ctx context.Context, term string) bool {
	kws, err := d.store.ListKeywords(ctx)
	if err != nil {
		d.logger.Warn("keyword lookup failed", zap.String("term", term), zap.Error(err))
		return true
	}
	for _, k := range kws {
		if foldTerm(k.Name) == term {
			return true
		}
	}
	return false
}
