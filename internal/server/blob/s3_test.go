package blob

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func stubAWS(t *testing.T, client putObjectAPI) *s3.Options {
	t.Helper()
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		for _, fn := range optFns {
			fn(&opts)
		}
		return client
	}
	return &opts
}

var settings = Settings{
	Bucket:   "datasets",
	Region:   "us-east-1",
	Endpoint: "http://127.0.0.1:9000",
	User:     "minioadmin",
	Password: "minioadmin",
}

func TestNewS3Archiver_AppliesSettings(t *testing.T) {
	opts := stubAWS(t, &fakeS3{})

	a, err := NewS3Archiver(context.Background(), settings)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Archiver_Errors(t *testing.T) {
	_, err := NewS3Archiver(context.Background(), Settings{})
	assert.Error(t, err)

	stubAWS(t, &fakeS3{})
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = NewS3Archiver(context.Background(), settings)
	assert.EqualError(t, err, "load-fail")
}

func TestPut(t *testing.T) {
	fake := &fakeS3{}
	stubAWS(t, fake)
	a, err := NewS3Archiver(context.Background(), settings)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC) }

	key, err := a.Put(context.Background(), strings.NewReader("a,b\n1,2\n"), 8, "text/csv")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^datasets/2025/3/7/[0-9a-f-]{36}$`), key)
	assert.Equal(t, "datasets", aws.ToString(fake.in.Bucket))
	assert.Equal(t, key, aws.ToString(fake.in.Key))
	assert.Equal(t, int64(8), aws.ToInt64(fake.in.ContentLength))
	assert.Equal(t, "text/csv", aws.ToString(fake.in.ContentType))
	assert.Equal(t, "a,b\n1,2\n", fake.body)
}

func TestPut_Failure(t *testing.T) {
	stubAWS(t, &fakeS3{err: errors.New("503 SlowDown")})
	a, err := NewS3Archiver(context.Background(), settings)
	require.NoError(t, err)

	_, err = a.Put(context.Background(), strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
}
