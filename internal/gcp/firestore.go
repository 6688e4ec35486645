package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient resolves the target project from PROJECT_ID and opens a
// client against it. All services share this one entry point so the project
// requirement is validated in exactly one place.
func NewFirestoreClient(ctx context.Context) (*firestore.Client, error) {
	projectID := GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client for project %s: %w", projectID, err)
	}
	return client, nil
}
