package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "default port",
			url:      "ftp://ftp2.census.gov/geo/tiger/GENZ2023/shp/cb_2023_us_state_500k.zip",
			wantHost: "ftp2.census.gov:21",
			wantPath: "/geo/tiger/GENZ2023/shp/cb_2023_us_state_500k.zip",
		},
		{
			name:     "explicit port",
			url:      "ftp://ftp2.census.gov:2121/pub/data.zip",
			wantHost: "ftp2.census.gov:2121",
			wantPath: "/pub/data.zip",
		},
		{
			name:    "wrong scheme",
			url:     "https://ftp2.census.gov/pub/data.zip",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp2.census.gov",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := splitFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_Defaults(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 60*time.Second, f.opts.Timeout)

	f = NewFTPFetcher(FTPOptions{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, f.opts.Timeout)
}
