package pymarshal

import "fmt"

// Version identifies the Python release whose marshal format is in use.
//
// The stream itself does not say which version wrote it: the same tag
// byte can mean a different payload layout in different versions (most
// visibly KindCode), so the caller must supply the version explicitly.
// For .pyc files the version is implied by the magic number and
// ReadPyc fills it in.
type Version struct {
	Major, Minor int
}

// supportedVersions is the closed set of versions the codec implements.
var supportedVersions = []Version{
	{3, 10},
	{3, 11},
	{3, 12},
	{3, 13},
}

// Supported reports whether v is in the supported set.
func (v Version) Supported() bool {
	for _, s := range supportedVersions {
		if v == s {
			return true
		}
	}
	return false
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// atLeast reports whether v is not older than (major, minor).
func (v Version) atLeast(major, minor int) bool {
	if v.Major != major {
		return v.Major > major
	}
	return v.Minor >= minor
}

// magicTable maps pyc magic numbers to the release that wrote them.
// Releases before 3.10 are listed so that ReadPyc can name the version
// it is rejecting rather than reporting an unrecognized file.
var magicTable = []struct {
	magic   uint32
	version Version
}{
	{0x0A0D0C3B, Version{3, 0}},
	{0x0A0D0C4F, Version{3, 1}},
	{0x0A0D0C6C, Version{3, 2}},
	{0x0A0D0C9E, Version{3, 3}},
	{0x0A0D0CEE, Version{3, 4}},
	{0x0A0D0D16, Version{3, 5}},
	{0x0A0D0D33, Version{3, 6}},
	{0x0A0D0D42, Version{3, 7}},
	{0x0A0D0D55, Version{3, 8}},
	{0x0A0D0D61, Version{3, 9}},
	{0x0A0D0D6F, Version{3, 10}},
	{0x0A0D0DA7, Version{3, 11}},
	{0x0A0D0DCB, Version{3, 12}},
	{0x0A0D0DF3, Version{3, 13}},
}

// versionFromMagic resolves a pyc magic number to its release.
func versionFromMagic(magic uint32) (Version, bool) {
	for _, e := range magicTable {
		if e.magic == magic {
			return e.version, true
		}
	}
	return Version{}, false
}

// magic returns the pyc magic number for v.
func (v Version) magic() (uint32, bool) {
	for _, e := range magicTable {
		if e.version == v {
			return e.magic, true
		}
	}
	return 0, false
}
