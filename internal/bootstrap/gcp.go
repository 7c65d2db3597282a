package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// newFirebaseApp initializes a Firebase Admin app from a service-account
// JSON document. A malformed document is a startup error.
func newFirebaseApp(ctx context.Context, credsJSON []byte, projectID, bucket string) (*firebase.App, error) {
	creds, err := google.CredentialsFromJSON(ctx, credsJSON, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if projectID == "" {
		projectID = creds.ProjectID
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     projectID,
		StorageBucket: bucket,
	}, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// OpenFirestore returns the document store client for the metadata
// repositories.
func OpenFirestore(ctx context.Context, credsJSON []byte, projectID string) (*firestore.Client, error) {
	app, err := newFirebaseApp(ctx, credsJSON, projectID, "")
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return client, nil
}

// OpenBucket returns a Cloud Storage bucket handle authorised by the
// storage service account.
func OpenBucket(ctx context.Context, credsJSON []byte, bucket string) (*gcs.BucketHandle, error) {
	app, err := newFirebaseApp(ctx, credsJSON, "", bucket)
	if err != nil {
		return nil, err
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Storage client: %w", err)
	}
	handle, err := client.Bucket(bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}
	return handle, nil
}
