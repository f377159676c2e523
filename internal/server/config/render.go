package config

// serverSectionYAML mirrors ServerSection with durations as strings.
type serverSectionYAML struct {
	Hostname         string `yaml:"hostname"`
	Port             int    `yaml:"port"`
	Listen           string `yaml:"listen"`
	Mode             string `yaml:"mode"`
	PublicRoot       string `yaml:"public_root"`
	MaskRemoteAddr   bool   `yaml:"mask_remote_addr"`
	ReadTimeout      string `yaml:"read_timeout"`
	HandshakeTimeout string `yaml:"handshake_timeout"`
	WriteTimeout     string `yaml:"write_timeout"`
	MaxConnections   int    `yaml:"max_connections"`
}

// MarshalYAML renders durations as "5s" so that `config show` output can
// be loaded back as a config file.
func (s ServerSection) MarshalYAML() (any, error) {
	return serverSectionYAML{
		Hostname:         s.Hostname,
		Port:             s.Port,
		Listen:           s.Listen,
		Mode:             s.Mode,
		PublicRoot:       s.PublicRoot,
		MaskRemoteAddr:   s.MaskRemoteAddr,
		ReadTimeout:      s.ReadTimeout.String(),
		HandshakeTimeout: s.HandshakeTimeout.String(),
		WriteTimeout:     s.WriteTimeout.String(),
		MaxConnections:   s.MaxConnections,
	}, nil
}
