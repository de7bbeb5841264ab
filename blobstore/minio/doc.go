// Package minio provides a BlobStore implementation using the MinIO client.
//
// It targets MinIO and other S3-compatible systems (Ceph, SeaweedFS, Garage)
// without pulling in the AWS SDK, which suits air-gapped deployments.
//
// # Basic Usage
//
//	store, err := minioblob.New("localhost:9000", "psm", minioblob.Options{
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Prefix:    "runs/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	exp, err := dataset.Load(ctx, store, "experiment.csv")
//
// An existing *minio.Client can be wrapped with NewStore.
package minio
