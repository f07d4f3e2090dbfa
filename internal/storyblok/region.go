package storyblok

// Region selects the Storyblok data center of a space.
type Region string

// Supported regions.
const (
	RegionEU Region = "eu"
	RegionUS Region = "us"
	RegionCA Region = "ca"
	RegionAP Region = "ap"
	RegionCN Region = "cn"
)

type regionHosts struct {
	management string
	content    string
}

var regions = map[Region]regionHosts{
	RegionEU: {"https://mapi.storyblok.com/v1", "https://api.storyblok.com/v2"},
	RegionUS: {"https://api-us.storyblok.com/v1", "https://api-us.storyblok.com/v2"},
	RegionCA: {"https://api-ca.storyblok.com/v1", "https://api-ca.storyblok.com/v2"},
	RegionAP: {"https://api-ap.storyblok.com/v1", "https://api-ap.storyblok.com/v2"},
	RegionCN: {"https://app.storyblokchina.cn/v1", "https://app.storyblokchina.cn/v2"},
}

// Valid reports whether the region is known.
func (r Region) Valid() bool {
	_, ok := regions[r]
	return ok
}

// ManagementURL returns the management API base URL of the region.
func (r Region) ManagementURL() string {
	return regions[r].management
}

// ContentURL returns the content delivery API base URL of the region.
func (r Region) ContentURL() string {
	return regions[r].content
}
