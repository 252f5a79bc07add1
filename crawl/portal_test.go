package crawl_test

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/b2bsync"
	"github.com/fwojciec/b2bsync/mock"
	"github.com/shopspring/decimal"
)

const (
	testLoginURL   = "https://b2b.example.com/GirisYap"
	testCatalogURL = "https://b2b.example.com/stok-listesi"
	testPassword   = "secret"
)

var (
	pageLinkRe = regexp.MustCompile(`text\(\)='(\d+)' and contains\(@class, 'page'\)`)
	pageHTMLRe = regexp.MustCompile(`catalog-page-(\d+)`)
)

func testSite(totalPages int) b2bsync.Site {
	return b2bsync.Site{
		BaseURL:    "https://b2b.example.com",
		LoginURL:   testLoginURL,
		CatalogURL: testCatalogURL,
		TotalPages: totalPages,
	}
}

func testCreds() b2bsync.Credentials {
	return b2bsync.Credentials{Username: "dealer", Password: testPassword}
}

// portal simulates the supplier site for any number of sessions.
type portal struct {
	// hideIndicator removes the active page marker from every page.
	hideIndicator bool

	// missingLinks lists pages whose pagination link cannot be found.
	missingLinks map[int]bool

	// rejectSession makes logins fail for the nth session (1-based).
	rejectSession int

	sessions  atomic.Int32
	logins    atomic.Int32
	clicks    atomic.Int32
	closed    atomic.Int32
	navigated sync.Map // url -> count
}

func (p *portal) browser() *mock.Browser {
	return &mock.Browser{
		NewSessionFn: func(_ context.Context) (b2bsync.Session, error) {
			n := int(p.sessions.Add(1))
			return p.newSession(n), nil
		},
		CloseFn: func() error { return nil },
	}
}

func (p *portal) visits(url string) int {
	v, ok := p.navigated.Load(url)
	if !ok {
		return 0
	}
	return int(v.(*atomic.Int32).Load())
}

func (p *portal) newSession(n int) *mock.Session {
	var (
		mu       sync.Mutex
		url      string
		page     int
		password string
		loggedIn bool
	)

	input := func(target *string) *mock.Element {
		return &mock.Element{
			InputFn: func(_ context.Context, text string) error {
				mu.Lock()
				defer mu.Unlock()
				*target = text
				return nil
			},
		}
	}
	var username string

	return &mock.Session{
		NavigateFn: func(_ context.Context, u string) error {
			v, _ := p.navigated.LoadOrStore(u, new(atomic.Int32))
			v.(*atomic.Int32).Add(1)

			mu.Lock()
			defer mu.Unlock()
			url = u
			page = 0
			if u == testCatalogURL {
				page = 1
			}
			if m := regexp.MustCompile(`page=(\d+)`).FindStringSubmatch(u); m != nil {
				page, _ = strconv.Atoi(m[1])
			}
			return nil
		},
		FindFn: func(_ context.Context, loc b2bsync.Locator) (b2bsync.Element, error) {
			mu.Lock()
			defer mu.Unlock()

			switch {
			case loc.Query == "#Username":
				return input(&username), nil
			case loc.Query == "#Password":
				return input(&password), nil
			case loc.Query == `//input[@type='submit']`:
				return &mock.Element{
					ClickFn: func(_ context.Context) error {
						mu.Lock()
						defer mu.Unlock()
						p.logins.Add(1)
						loggedIn = password == testPassword && n != p.rejectSession
						if loggedIn {
							url = "https://b2b.example.com/Home"
						}
						return nil
					},
				}, nil
			case strings.Contains(loc.Query, ".pagination .active"):
				if p.hideIndicator || page == 0 {
					return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "no indicator")
				}
				current := page
				return &mock.Element{
					TextFn: func(_ context.Context) (string, error) { return strconv.Itoa(current), nil },
				}, nil
			}

			if m := pageLinkRe.FindStringSubmatch(loc.Query); m != nil && page > 0 {
				target, _ := strconv.Atoi(m[1])
				if p.missingLinks[target] {
					return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "no link")
				}
				return &mock.Element{
					EvalFn: func(_ context.Context, js string) error {
						if strings.Contains(js, "click") {
							p.clicks.Add(1)
							mu.Lock()
							page = target
							mu.Unlock()
						}
						return nil
					},
				}, nil
			}
			return nil, b2bsync.Errorf(b2bsync.ENOTFOUND, "no match for %s", loc)
		},
		HTMLFn: func(_ context.Context) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			switch {
			case url == testLoginURL:
				return `<form action="/GirisYap"></form>`, nil
			case page > 0 && loggedIn:
				return fmt.Sprintf(`<div>Çıkış</div><main>catalog-page-%d</main>`, page), nil
			case loggedIn:
				return `<a href="/logout">Çıkış</a>`, nil
			}
			return `<form action="/GirisYap"></form>`, nil
		},
		URLFn: func(_ context.Context) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			return url, nil
		},
		WaitStableFn: func(_ context.Context, _ time.Duration) error { return nil },
		CloseFn: func() error {
			p.closed.Add(1)
			return nil
		},
	}
}

// pageExtractor returns a catalog extractor serving perPage(n) products for
// page n.
func pageExtractor(perPage func(page int) int) *mock.CatalogExtractor {
	return &mock.CatalogExtractor{
		ExtractProductsFn: func(html string, margin decimal.Decimal) ([]*b2bsync.Product, error) {
			m := pageHTMLRe.FindStringSubmatch(html)
			if m == nil {
				return nil, nil
			}
			page, _ := strconv.Atoi(m[1])
			var products []*b2bsync.Product
			for i := 0; i < perPage(page); i++ {
				products = append(products, &b2bsync.Product{
					Code:             fmt.Sprintf("P%03d-%d", page, i),
					Name:             fmt.Sprintf("Product %d on page %d", i, page),
					MarginPercentage: margin,
				})
			}
			return products, nil
		},
		DiscoverTotalPagesFn: func(_ string) (int, bool) { return 0, false },
	}
}

func codes(products []*b2bsync.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Code)
	}
	return out
}
