package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string
	res   *Result
	err   error
	delay time.Duration
}

func (f *fakeProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newService(t *testing.T, p Provider, opts Options) *Service {
	t.Helper()
	d := dbtest.Open(t)
	require.NoError(t, Init(d))
	return NewService(d, p, opts)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "123 main st", Normalize("  123   MAIN\tSt \n"))
	assert.Equal(t, "123 main st", Normalize("123 Main St"))
	assert.Equal(t, "strasse 1", Normalize("STRASSE 1"))
	// fullwidth digits fold to ASCII under NFKC
	assert.Equal(t, "12 elm", Normalize("１２ Elm"))
	assert.Equal(t, "", Normalize("   "))
}

func TestResolveCachesByNormalizedAddress(t *testing.T) {
	p := &fakeProvider{res: &Result{Lat: 39.16, Lng: -86.52, FormattedAddress: "123 Main St, Bloomington, IN"}}
	svc := newService(t, p, Options{})
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "123 Main St")
	require.NoError(t, err)
	assert.Equal(t, 1, p.count())
	assert.Equal(t, "123 Main St, Bloomington, IN", first.FormattedAddress)

	var entry GeocodeCacheEntry
	require.NoError(t, svc.db.First(&entry, "query = ?", "123 main st").Error)
	assert.Equal(t, "123 Main St", entry.OriginalQuery)

	second, err := svc.Resolve(ctx, "  123  MAIN   st ")
	require.NoError(t, err)
	assert.Equal(t, 1, p.count())
	assert.Equal(t, first, second)
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	p := &fakeProvider{err: ErrNoMatch}
	svc := newService(t, p, Options{})
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "nowhere")
	assert.True(t, errors.Is(err, ErrNoMatch))

	p.err = errors.New("connection refused")
	_, err = svc.Resolve(ctx, "nowhere")
	assert.True(t, errors.Is(err, ErrUpstream))

	var n int64
	require.NoError(t, svc.db.Model(&GeocodeCacheEntry{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)

	p.err = nil
	p.res = &Result{Lat: 1, Lng: 2}
	_, err = svc.Resolve(ctx, "nowhere")
	require.NoError(t, err)
	assert.Equal(t, 3, p.count())
}

// racingProvider stores a competing cache row before answering, as a
// concurrent request for the same key would.
type racingProvider struct {
	svc *Service
}

func (r *racingProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	stale := GeocodeCacheEntry{Query: Normalize(address), Lat: 1, Lng: 1, FormattedAddress: "stale"}
	if err := r.svc.db.Create(&stale).Error; err != nil {
		return nil, err
	}
	return &Result{Lat: 2, Lng: 2, FormattedAddress: "fresh"}, nil
}

func TestResolveLatestLookupWins(t *testing.T) {
	p := &racingProvider{}
	svc := newService(t, p, Options{})
	p.svc = svc

	res, err := svc.Resolve(context.Background(), "5 Oak Ave")
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.FormattedAddress)

	var entries []GeocodeCacheEntry
	require.NoError(t, svc.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].FormattedAddress)
	assert.Equal(t, 2.0, entries[0].Lat)
}

func TestResolveErrors(t *testing.T) {
	ctx := context.Background()

	svc := newService(t, nil, Options{})
	_, err := svc.Resolve(ctx, "1 Elm")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	_, err = svc.Resolve(ctx, " \t ")
	assert.True(t, errors.Is(err, ErrEmptyAddress))

	slow := &fakeProvider{res: &Result{}, delay: time.Second}
	svc = newService(t, slow, Options{Timeout: 20 * time.Millisecond})
	_, err = svc.Resolve(ctx, "1 Elm")
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestGeocodeHandler(t *testing.T) {
	p := &fakeProvider{res: &Result{Lat: 10, Lng: 20, FormattedAddress: "Somewhere"}}
	router := SetupRoutes(NewHandlers(newService(t, p, Options{})))

	get := func(address string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?address="+url.QueryEscape(address), nil))
		return rec
	}

	rec := get("Somewhere")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lat":10,"lng":20,"formatted_address":"Somewhere"}`, rec.Body.String())

	rec = get("SOMEWHERE ")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, p.count())

	assert.Equal(t, http.StatusBadRequest, get("").Code)

	p.err = ErrNoMatch
	assert.Equal(t, http.StatusNotFound, get("elsewhere").Code)

	p.err = errors.New("503 from provider")
	rec = get("elsewhere")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM")

	unconfigured := SetupRoutes(NewHandlers(newService(t, nil, Options{})))
	rec = httptest.NewRecorder()
	unconfigured.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?address=x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIG")
}
