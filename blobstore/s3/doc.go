// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", func(o *s3.Options) {
//	    o.Prefix = "psm/"
//	    o.Region = "eu-central-1"
//	})
//
//	exp, ctrl, err := dataset.LoadPair(ctx, store, "experiment.csv", "control.csv")
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large results
//   - Automatic pagination for listing
//   - DDBCommitStore: atomic CURRENT pointer via DynamoDB conditional writes
package s3
