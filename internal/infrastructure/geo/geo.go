package geo

import (
	"net"
	"strings"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/logger"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

type Locator struct {
	reader *geoip2.Reader
}

// Open loads a MaxMind City or Country database. An empty path yields a
// locator that never resolves a country.
func Open(path string) (*Locator, error) {
	if path == "" {
		return &Locator{}, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	logger.Info("geoip database loaded", zap.String("path", path))
	return &Locator{reader: reader}, nil
}

// Country returns the upper-case ISO code for ip, or "" when unknown.
func (l *Locator) Country(ip string) string {
	if l == nil || l.reader == nil {
		return ""
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return ""
	}
	record, err := l.reader.City(parsed)
	if err != nil {
		logger.Debug("geoip lookup failed", zap.Error(err))
		return ""
	}
	return strings.ToUpper(record.Country.IsoCode)
}

func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
