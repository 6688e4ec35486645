package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/bambooreports/securedelivery/internal/models"
)

// Catalog reads and writes the plan_documents collection. The delivery
// pipeline only reads; the report ingestor owns the writes.
type Catalog struct {
	client     *firestore.Client
	collection string
}

func NewCatalog(client *firestore.Client, collection string) *Catalog {
	return &Catalog{client: client, collection: collection}
}

// DocumentByID fetches a single catalog row.
func (c *Catalog) DocumentByID(ctx context.Context, id string) (*models.PlanDocument, error) {
	snap, err := c.client.Collection(c.collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch plan document %s: %w", id, err)
	}
	var doc models.PlanDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode plan document %s: %w", id, err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

// DocumentsByPlan returns the active documents for a plan, ordered for display.
func (c *Catalog) DocumentsByPlan(ctx context.Context, planName string) ([]models.PlanDocument, error) {
	iter := c.client.Collection(c.collection).
		Where("planName", "==", planName).
		Where("isActive", "==", true).
		OrderBy("displayOrder", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var docs []models.PlanDocument
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list documents for plan %s: %w", planName, err)
		}
		var doc models.PlanDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode plan document %s: %w", snap.Ref.ID, err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindByHash looks up a catalog row by content hash. Used by the ingestor to
// skip duplicate uploads.
func (c *Catalog) FindByHash(ctx context.Context, fileHash string) (string, bool, error) {
	docs, err := c.client.Collection(c.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, true, nil
	}
	return "", false, nil
}

// Create inserts a new catalog row and returns its generated ID.
func (c *Catalog) Create(ctx context.Context, doc models.PlanDocument) (string, error) {
	ref, _, err := c.client.Collection(c.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create plan document: %w", err)
	}
	return ref.ID, nil
}
