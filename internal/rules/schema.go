package rules

// File is the on-disk shape of the rules overlay. Every list extends the
// built-in tables; nothing can be removed from them.
//
//	blocklist:
//	  - internal.example.
//	images:
//	  extensions: [".heic"]
//	  hosts: ['^cdn\.example\.com$']
//	videos:
//	  domains: ["peertube.example"]
//	  extensions: [".flv"]
type File struct {
	Blocklist []string   `yaml:"blocklist,omitempty"`
	Images    ImageRules `yaml:"images,omitempty"`
	Videos    VideoRules `yaml:"videos,omitempty"`
}

type ImageRules struct {
	Extensions []string `yaml:"extensions,omitempty"`
	// Hosts are regular expressions matched against the lower-cased host.
	Hosts []string `yaml:"hosts,omitempty"`
}

type VideoRules struct {
	Domains    []string `yaml:"domains,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
}
