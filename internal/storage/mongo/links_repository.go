package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IgorGrieder/linkedge/internal/infrastructure/db"
	"github.com/IgorGrieder/linkedge/internal/processing/clicks"
	"github.com/IgorGrieder/linkedge/internal/processing/redirect"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const linksCollection = "links"

// LinksRepository serves both link lookups and click counters from the
// links collection.
type LinksRepository struct {
	coll *mongo.Collection
}

type linkDoc struct {
	ID           string            `bson:"_id"`
	Domain       string            `bson:"domain"`
	Key          string            `bson:"key"`
	URL          string            `bson:"url"`
	IOS          *string           `bson:"ios,omitempty"`
	Android      *string           `bson:"android,omitempty"`
	Geo          map[string]string `bson:"geo,omitempty"`
	Archived     bool              `bson:"archived"`
	ExpiresAt    *time.Time        `bson:"expiresAt,omitempty"`
	ExpiredURL   *string           `bson:"expiredUrl,omitempty"`
	Password     *string           `bson:"password,omitempty"`
	Rewrite      bool              `bson:"rewrite"`
	ProjectID    string            `bson:"projectId,omitempty"`
	GeoTargeting bool              `bson:"geoTargeting"`
	Clicks       int64             `bson:"clicks"`
	LastClicked  *time.Time        `bson:"lastClicked,omitempty"`
	DeletedAt    *time.Time        `bson:"deletedAt,omitempty"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection(linksCollection)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "domain", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_domain_key_live").
				SetPartialFilterExpression(bson.M{"deletedAt": bson.M{"$exists": false}}),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) FindByDomainKey(ctx context.Context, domain, key string) (*redirect.LinkRecord, error) {
	filter := bson.M{
		"domain":    domain,
		"key":       key,
		"deletedAt": bson.M{"$exists": false},
	}

	var doc linkDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, redirect.ErrNotFound
	}
	return nil, err
}

// IncrementClicks adds delta and keeps lastClicked monotonic in one update.
func (r *LinksRepository) IncrementClicks(ctx context.Context, linkID string, delta int64, lastClickedAt time.Time) error {
	update := bson.M{
		"$inc": bson.M{"clicks": delta},
		"$max": bson.M{"lastClicked": lastClickedAt.UTC()},
	}

	res, err := r.coll.UpdateByID(ctx, linkID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("link %s: %w", linkID, clicks.ErrUnknownLink)
	}
	return nil
}

func mapLinkDoc(doc linkDoc) *redirect.LinkRecord {
	link := &redirect.LinkRecord{
		ID:           doc.ID,
		Domain:       doc.Domain,
		Key:          doc.Key,
		TargetURL:    doc.URL,
		IOSURL:       doc.IOS,
		AndroidURL:   doc.Android,
		Geo:          doc.Geo,
		Archived:     doc.Archived,
		ExpiredURL:   doc.ExpiredURL,
		PasswordHash: doc.Password,
		Rewrite:      doc.Rewrite,
		ProjectID:    doc.ProjectID,
		Capabilities: redirect.Capabilities{GeoTargeting: doc.GeoTargeting},
	}
	if doc.ExpiresAt != nil {
		t := doc.ExpiresAt.UTC()
		link.ExpiresAt = &t
	}
	return link
}
