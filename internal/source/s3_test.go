package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	objects map[string]string
	listErr error
}

func (f *fakeStore) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Loader_Load(t *testing.T) {
	store := &fakeStore{objects: map[string]string{
		"annual/annual_aqi_by_county_2024.csv": annualFile(`Texas,Harris,2024,365,300,50,3,1,0,0,30,25,20`),
		"annual/annual_aqi_by_county_2025.csv": annualFile(`Texas,Harris,2025,365,300,50,3,1,0,0,50,25,40`),
		"annual/readme.txt":                    "ignored",
		"other/annual_aqi_by_county_2025.csv":  annualFile(`Utah,Salt Lake,2025,365,200,100,4,1,0,0,150,90,40`),
	}}
	loader := NewS3Loader(store, "aqi", "annual/", "", discardLogger())

	keys, err := loader.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"annual/annual_aqi_by_county_2024.csv",
		"annual/annual_aqi_by_county_2025.csv",
	}, keys)

	in, err := loader.Load(context.Background())
	require.NoError(t, err)

	got := in.Tally.Summaries()
	require.Len(t, got, 1)
	assert.InDelta(t, 30.0, got[0].MedianAQIAvg, 1e-9)
	assert.Equal(t, 2, got[0].Observations)
}

func TestS3Loader_ListError(t *testing.T) {
	loader := NewS3Loader(&fakeStore{listErr: errors.New("AccessDenied")}, "aqi", "annual/", "", discardLogger())

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestS3Loader_NoObjects(t *testing.T) {
	loader := NewS3Loader(&fakeStore{objects: map[string]string{}}, "aqi", "annual/", "", discardLogger())

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no objects matching")
}
