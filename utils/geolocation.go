package utils

import (
	"log"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

type GeoLocation struct {
	Country string
	City    string
	Lat     float64
	Lon     float64
}

// GeoResolver resolves node IPs against a local MaxMind City database.
// Results, including misses, are cached per IP.
type GeoResolver struct {
	db    *geoip2.Reader
	cache sync.Map // map[string]GeoLocation
}

// NewGeoResolver returns nil when no database path is configured or the file
// cannot be opened; a nil resolver is valid and resolves nothing.
func NewGeoResolver(dbPath string) *GeoResolver {
	if dbPath == "" {
		return nil
	}
	db, err := geoip2.Open(dbPath)
	if err != nil {
		log.Printf("⚠️  Could not open GeoIP database at %s: %v. Geo enrichment disabled.", dbPath, err)
		return nil
	}
	return &GeoResolver{db: db}
}

func (g *GeoResolver) Close() {
	if g != nil && g.db != nil {
		g.db.Close()
	}
}

// Lookup accepts a bare IP or an ip:port address. It is safe on a nil resolver.
func (g *GeoResolver) Lookup(address string) (GeoLocation, bool) {
	if g == nil || g.db == nil {
		return GeoLocation{}, false
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}

	if val, ok := g.cache.Load(host); ok {
		loc := val.(GeoLocation)
		return loc, loc.Country != ""
	}

	var loc GeoLocation
	if ip := net.ParseIP(host); ip != nil {
		if record, err := g.db.City(ip); err == nil {
			loc = GeoLocation{
				Country: record.Country.Names["en"],
				City:    record.City.Names["en"],
				Lat:     record.Location.Latitude,
				Lon:     record.Location.Longitude,
			}
		}
	}

	g.cache.Store(host, loc)
	return loc, loc.Country != ""
}
