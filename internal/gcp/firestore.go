package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/alomari/pdfwatermarker/internal/models"
	"google.golang.org/api/option"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreJobStore keeps one document per batch run under the given job ID.
type FirestoreJobStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreJobStore(client *firestore.Client, collection string) *FirestoreJobStore {
	return &FirestoreJobStore{client: client, collection: collection}
}

// Create writes the initial job document.
func (s *FirestoreJobStore) Create(ctx context.Context, jobID string, job *models.Job) error {
	if _, err := s.client.Collection(s.collection).Doc(jobID).Set(ctx, job); err != nil {
		return fmt.Errorf("failed to create job document: %w", err)
	}
	return nil
}

// RecordSource stores what was learned from the loaded source document.
func (s *FirestoreJobStore) RecordSource(ctx context.Context, jobID, sourceHash string, pageCount, nameCount int) error {
	updates := []firestore.Update{
		{Path: "sourceHash", Value: sourceHash},
		{Path: "pageCount", Value: pageCount},
		{Path: "nameCount", Value: nameCount},
	}
	if _, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update job document: %w", err)
	}
	return nil
}

// Complete records the final status and per-name deliveries.
func (s *FirestoreJobStore) Complete(ctx context.Context, jobID, status string, deliveries []models.Delivery) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "deliveries", Value: deliveries},
		{Path: "completedAt", Value: time.Now()},
	}
	if _, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to complete job document: %w", err)
	}
	return nil
}

// UpdateStatus sets the status and, when given, the error details.
func (s *FirestoreJobStore) UpdateStatus(ctx context.Context, jobID, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := s.client.Collection(s.collection).Doc(jobID).Update(ctx, updates)
	return err
}

func (s *FirestoreJobStore) Close() error {
	return s.client.Close()
}
