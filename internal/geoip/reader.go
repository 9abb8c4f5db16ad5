package geoip

import (
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/patrickmn/go-cache"
)

// Provider wraps the GeoIP2 database reader and remembers recent lookups,
// query clients tend to poll from the same few addresses.
type Provider struct {
	db    *geoip2.Reader
	cache *cache.Cache
}

// Open initializes the GeoIP database reader from a specific file path.
// Lookups are cached for ttl.
func Open(path string, ttl time.Duration) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db, cache: cache.New(ttl, 2*ttl)}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// GetCountryCode looks up the ISO country code (e.g., "US", "DE") for a given IP address string.
// It returns an empty string if the IP is invalid or the country cannot be determined.
func (p *Provider) GetCountryCode(ipStr string) string {
	if code, ok := p.cache.Get(ipStr); ok {
		return code.(string)
	}

	code := lookup(p.db, ipStr)
	p.cache.SetDefault(ipStr, code)

	return code
}

func lookup(db *geoip2.Reader, ipStr string) string {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}

	record, err := db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}
