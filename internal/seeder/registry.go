// internal/seeder/registry.go
package seeder

import (
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"

	"github.com/skyhop/flightcache/internal/models"
	"github.com/skyhop/flightcache/internal/repository"
)

// SourcePage names one scrapable reference table.
type SourcePage struct {
	Name string
	URL  string
}

// Default public reference tables. Both are stable list pages with one
// wikitable row per entry.
var (
	AirportSources = []SourcePage{
		{Name: "busiest_airports", URL: "https://en.wikipedia.org/wiki/List_of_busiest_airports_by_passenger_traffic"},
	}
	AirlineSources = []SourcePage{
		{Name: "airline_codes", URL: "https://en.wikipedia.org/wiki/List_of_airline_codes"},
	}
)

// Options control one seeding run.
type Options struct {
	Limit  int
	Delay  time.Duration
	DryRun bool
}

// RegistrySeeder scrapes public reference tables into the airport and
// airline registries, honoring the fill-null-only upsert law.
type RegistrySeeder struct {
	repoManager *repository.RepositoryManager
	processor   *CellProcessor
	opts        Options
	logger      *logrus.Logger
}

func NewRegistrySeeder(repoManager *repository.RepositoryManager, opts Options, logger *logrus.Logger) *RegistrySeeder {
	if opts.Delay == 0 {
		opts.Delay = 2 * time.Second
	}
	return &RegistrySeeder{
		repoManager: repoManager,
		processor:   NewCellProcessor(),
		opts:        opts,
		logger:      logger,
	}
}

func (rs *RegistrySeeder) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent("flightcache-seeder/1.0"),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*wikipedia.org",
		Parallelism: 1,
		Delay:       rs.opts.Delay,
	})
	c.SetRequestTimeout(30 * time.Second)
	return c
}

// SeedAirports scrapes the airport sources and upserts every row with a
// valid IATA code.
func (rs *RegistrySeeder) SeedAirports() (int, error) {
	seeded := 0

	for _, source := range AirportSources {
		c := rs.newCollector()

		c.OnHTML("table.wikitable tbody tr", func(e *colly.HTMLElement) {
			if rs.opts.Limit > 0 && seeded >= rs.opts.Limit {
				return
			}

			cells := e.DOM.Find("td")
			if cells.Length() < 3 {
				return
			}

			var code, name, location string
			cells.EachWithBreak(func(i int, s *goquery.Selection) bool {
				text := s.Text()
				if code == "" {
					code = rs.processor.ExtractAirportCode(text)
					if code != "" {
						return true
					}
				}
				if code != "" && name == "" && len(rs.processor.CleanName(text)) > 3 {
					name = rs.processor.CleanName(text)
					return true
				}
				if name != "" && location == "" {
					location = text
					return false
				}
				return true
			})

			// Row layouts vary; name often comes before the code column.
			if name == "" {
				name = rs.processor.CleanName(cells.First().Text())
			}
			if code == "" || name == "" {
				return
			}

			city, country := rs.processor.SplitCityCountry(location)
			airport := &models.Airport{Code: code, Name: &name}
			if city != "" {
				airport.City = &city
			}
			if country != "" {
				airport.Country = &country
			}

			if rs.opts.DryRun {
				rs.logger.WithFields(logrus.Fields{"code": code, "name": name}).Info("Would seed airport")
				seeded++
				return
			}
			if err := rs.repoManager.Airports.Upsert(airport); err != nil {
				rs.logger.WithError(err).WithField("code", code).Warn("Airport upsert failed")
				return
			}
			seeded++
		})

		c.OnError(func(r *colly.Response, err error) {
			rs.logger.WithError(err).WithField("url", source.URL).Error("Airport source fetch failed")
		})

		if err := c.Visit(source.URL); err != nil {
			return seeded, fmt.Errorf("failed to visit %s: %w", source.Name, err)
		}
		c.Wait()
	}

	rs.logger.WithField("seeded", seeded).Info("Airport registry seeding completed")
	return seeded, nil
}

// SeedAirlines scrapes the airline code list and upserts every row with a
// valid designator.
func (rs *RegistrySeeder) SeedAirlines() (int, error) {
	seeded := 0

	for _, source := range AirlineSources {
		c := rs.newCollector()

		c.OnHTML("table.wikitable tbody tr", func(e *colly.HTMLElement) {
			if rs.opts.Limit > 0 && seeded >= rs.opts.Limit {
				return
			}

			cells := e.DOM.Find("td")
			if cells.Length() < 3 {
				return
			}

			code := rs.processor.ExtractAirlineCode(cells.Eq(0).Text())
			if code == "" {
				// Some layouts put the ICAO column first.
				code = rs.processor.ExtractAirlineCode(cells.Eq(1).Text())
			}
			name := rs.processor.CleanName(cells.Eq(2).Text())
			if code == "" || name == "" {
				return
			}

			airline := &models.Airline{Code: code, Name: &name}

			if rs.opts.DryRun {
				rs.logger.WithFields(logrus.Fields{"code": code, "name": name}).Info("Would seed airline")
				seeded++
				return
			}
			if err := rs.repoManager.Airlines.Upsert(airline); err != nil {
				rs.logger.WithError(err).WithField("code", code).Warn("Airline upsert failed")
				return
			}
			seeded++
		})

		c.OnError(func(r *colly.Response, err error) {
			rs.logger.WithError(err).WithField("url", source.URL).Error("Airline source fetch failed")
		})

		if err := c.Visit(source.URL); err != nil {
			return seeded, fmt.Errorf("failed to visit %s: %w", source.Name, err)
		}
		c.Wait()
	}

	rs.logger.WithField("seeded", seeded).Info("Airline registry seeding completed")
	return seeded, nil
}
