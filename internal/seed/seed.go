// Package seed generates demo profiles, posts and votes for development and
// load testing. It is not used by the API at runtime.
package seed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/digitalmaniak/sidewidth/internal/models"
	"github.com/digitalmaniak/sidewidth/internal/stats"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	kmPerDegree = 111.32
	batchSize   = 200
)

var framings = []struct{ a, b string }{
	{"%s is overrated", "%s is underrated"},
	{"More %s", "Less %s"},
	{"%s should be banned", "%s should be encouraged"},
	{"Keep %s downtown", "Move %s out of town"},
	{"%s is a necessity", "%s is a luxury"},
}

type voteShape int

const (
	shapeRandom voteShape = iota
	shapeConsensus
	shapeDivided
)

// Dataset is one generated batch of rows.
type Dataset struct {
	Profiles []models.Profile
	Posts    []models.Post
	Votes    []models.Vote
}

// Seeder generates and stores datasets. The same seed yields the same
// content for the same clock.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewSeeder creates a seeder writing to db.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(seed), now: time.Now}
}

// Generate builds a dataset for preset without touching the database.
func (s *Seeder) Generate(p Preset) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ds := &Dataset{Profiles: s.profiles(p)}
	ds.Posts = s.posts(p, ds.Profiles)
	for i := range ds.Posts {
		ds.Votes = append(ds.Votes, s.votes(p, &ds.Posts[i], ds.Profiles)...)
	}
	return ds, nil
}

// Apply generates a dataset for preset and stores it in one transaction.
func (s *Seeder) Apply(ctx context.Context, p Preset) (*Dataset, error) {
	ds, err := s.Generate(p)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(&ds.Profiles, batchSize).Error; err != nil {
			return fmt.Errorf("insert profiles: %w", err)
		}
		if len(ds.Posts) > 0 {
			if err := tx.CreateInBatches(&ds.Posts, batchSize).Error; err != nil {
				return fmt.Errorf("insert posts: %w", err)
			}
		}
		if len(ds.Votes) > 0 {
			if err := tx.CreateInBatches(&ds.Votes, batchSize).Error; err != nil {
				return fmt.Errorf("insert votes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// ClearAll deletes every vote, post and profile.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Vote{}, &models.Post{}, &models.Profile{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

func (s *Seeder) profiles(p Preset) []models.Profile {
	now := s.now()
	out := make([]models.Profile, p.Profiles)
	for i := range out {
		out[i] = models.Profile{
			ID:          s.uuid(),
			CreatedAt:   now.Add(-time.Duration(s.faker.IntRange(0, p.MaxAgeHours)) * time.Hour),
			Karma:       s.faker.IntRange(0, 500),
			LocalRadius: models.LocalRadiusStepKm * s.faker.IntRange(1, models.MaxLocalRadiusKm/models.LocalRadiusStepKm),
			Interests:   s.interests(),
		}
	}
	return out
}

// interests leaves most profiles on "all categories".
func (s *Seeder) interests() models.InterestList {
	if s.faker.Float64Range(0, 1) < 0.7 {
		return nil
	}
	n := s.faker.IntRange(1, 4)
	list := make(models.InterestList, 0, n)
	for _, idx := range s.faker.Rand.Perm(len(models.Categories))[:n] {
		list = append(list, string(models.Categories[idx]))
	}
	return list
}

func (s *Seeder) posts(p Preset, authors []models.Profile) []models.Post {
	now := s.now()
	categories := p.categories()
	out := make([]models.Post, p.Posts)
	for i := range out {
		framing := framings[s.faker.IntRange(0, len(framings)-1)]
		subject := capitalize(s.faker.Adjective() + " " + s.faker.Noun())
		author := authors[s.faker.IntRange(0, len(authors)-1)].ID

		post := models.Post{
			ID:        s.uuid(),
			CreatedAt: now.Add(-time.Duration(s.faker.IntRange(0, p.MaxAgeHours*60)) * time.Minute),
			CreatedBy: &author,
			SideA:     fmt.Sprintf(framing.a, subject),
			SideB:     fmt.Sprintf(framing.b, subject),
			Category:  categories[s.faker.IntRange(0, len(categories)-1)],
		}
		if s.faker.Float64Range(0, 1) < p.LocatedShare {
			lat, long := s.scatter(p.Center, p.SpreadKm)
			city := s.faker.City()
			post.Lat, post.Long, post.LocationName = &lat, &long, &city
		}
		if s.faker.Float64Range(0, 1) < 0.3 {
			desc := s.faker.Sentence(12)
			post.Description = &desc
		}
		out[i] = post
	}
	return out
}

// scatter picks a point uniformly within spreadKm of center.
func (s *Seeder) scatter(center Coordinate, spreadKm float64) (float64, float64) {
	d := spreadKm * math.Sqrt(s.faker.Float64Range(0, 1))
	theta := s.faker.Float64Range(0, 2*math.Pi)
	lat := center.Lat + d*math.Cos(theta)/kmPerDegree
	long := center.Long + d*math.Sin(theta)/(kmPerDegree*math.Cos(center.Lat*math.Pi/180))
	return math.Max(-90, math.Min(90, lat)), math.Max(-180, math.Min(180, long))
}

func (s *Seeder) votes(p Preset, post *models.Post, voters []models.Profile) []models.Vote {
	n := s.faker.IntRange(p.VotesPerPost.Min, p.VotesPerPost.Max)
	if n == 0 {
		return nil
	}
	shape := s.shape(p.Mix)
	lean := s.faker.IntRange(stats.MinValue, stats.MaxValue)
	elapsed := s.now().Sub(post.CreatedAt)

	out := make([]models.Vote, 0, n)
	for _, idx := range s.faker.Rand.Perm(len(voters))[:n] {
		at := post.CreatedAt
		if elapsed > 0 {
			at = at.Add(time.Duration(s.faker.Float64Range(0, 1) * float64(elapsed)))
		}
		out = append(out, models.Vote{
			ID:        s.uuid(),
			PostID:    post.ID,
			UserID:    voters[idx].ID,
			Value:     s.value(shape, lean),
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	return out
}

func (s *Seeder) shape(mix VoteMix) voteShape {
	total := mix.Consensus + mix.Divided + mix.Random
	if total <= 0 {
		return shapeRandom
	}
	r := s.faker.Float64Range(0, total)
	switch {
	case r < mix.Consensus:
		return shapeConsensus
	case r < mix.Consensus+mix.Divided:
		return shapeDivided
	default:
		return shapeRandom
	}
}

func (s *Seeder) value(shape voteShape, lean int) int {
	var v float64
	switch shape {
	case shapeConsensus:
		v = float64(lean) + s.faker.Rand.NormFloat64()*8
	case shapeDivided:
		v = float64(s.faker.IntRange(60, 100))
		if s.faker.Bool() {
			v = -v
		}
	default:
		v = float64(s.faker.IntRange(stats.MinValue, stats.MaxValue))
	}
	return int(math.Max(stats.MinValue, math.Min(stats.MaxValue, math.Round(v))))
}

// uuid draws ids from the faker so a seed reproduces the whole dataset.
func (s *Seeder) uuid() uuid.UUID {
	return uuid.MustParse(s.faker.UUID())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
