package s3

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/hashicorp/golang-lru/simplelru"
)

type S3Interface interface {
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
	PutObjectWithContext(ctx aws.Context, input *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error)
}

// Persist implements the mst.Persist interface for storing and
// loading nodes as S3 objects.  Since node content is immutable for a
// given name, a small LRU of recently-seen names avoids re-uploading
// nodes shared across tree versions.
type Persist struct {
	s3         S3Interface
	BucketName string
	Prefix     string
	// lru guarded by lruMu; nodes are stored concurrently during a
	// flush.
	lru   *simplelru.LRU
	lruMu *sync.Mutex
}

// Load loads the bytes persisted in the named object.
func (p *Persist) Load(ctx context.Context, name string) ([]byte, error) {
	input := s3.GetObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
	}
	output, err := p.s3.GetObjectWithContext(ctx, &input)
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, err
	}
	p.lruMu.Lock()
	p.lru.Add(name, nil)
	p.lruMu.Unlock()
	return b, nil
}

// Store persists the given bytes in an object of the given name, if
// it wasn't already uploaded.
func (p Persist) Store(ctx context.Context, name string, b []byte) error {
	p.lruMu.Lock()
	_, present := p.lru.Get(name)
	p.lruMu.Unlock()
	if present {
		return nil
	}
	input := s3.PutObjectInput{
		Bucket: &p.BucketName,
		Key:    aws.String(p.Prefix + name),
		Body:   bytes.NewReader(b),
	}
	_, err := p.s3.PutObjectWithContext(ctx, &input)
	if err != nil {
		return err
	}
	p.lruMu.Lock()
	p.lru.Add(name, nil)
	p.lruMu.Unlock()
	return nil
}

// NewPersist returns a Persist that loads and stores nodes as objects
// with the given S3 client and bucket name.
func NewPersist(client S3Interface, bucketName, prefix string) Persist {
	lru, err := simplelru.NewLRU(1000, nil)
	if err != nil {
		panic(err)
	}
	return Persist{client, bucketName, prefix, lru, &sync.Mutex{}}
}
