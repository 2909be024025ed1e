// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidVersion(t *testing.T) {
	v, err := Parse(version)
	require.NoError(t, err)
	require.Equal(t, v, Version)
	require.Equal(t, version, Version.String())
}

func TestParseSemVer(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    SemVer
		wantErr bool
	}{
		{
			name:    "Patch",
			version: "v1.2.3",
			want:    SemVer{major: 1, minor: 2, patch: 3, semVerType: typePatch},
		},
		{
			name:    "PreRelease",
			version: "v0.17-dev",
			want:    SemVer{major: 0, minor: 17, preRelease: "dev", semVerType: typePreRelease},
		},
		{
			name:    "Minor",
			version: "v0.1",
			want:    SemVer{major: 0, minor: 1, semVerType: typeMinor},
		},
		{
			name:    "Empty",
			version: "",
			wantErr: true,
		},
		{
			name:    "Invalid",
			version: "invalid",
			wantErr: true,
		},
		{
			name:    "No v prefix",
			version: "1.2.3",
			wantErr: true,
		},
		{
			name:    "Patch and pre-release",
			version: "v1.2.3-rc1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.version)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.version, got.String())
		})
	}
}
