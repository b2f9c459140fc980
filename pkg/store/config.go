package store

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goldenfleet/goldenctl/pkg/collections"
	"github.com/goldenfleet/goldenctl/pkg/entity"
	goldenerrors "github.com/goldenfleet/goldenctl/pkg/errors"
)

type ConfigStore struct {
	FileStore
	v *viper.Viper
}

// WithConfig loads the YAML config file into a viper instance backed by
// the store's filesystem.
func (f *FileStore) WithConfig(path string) (*ConfigStore, error) {
	v := viper.New()
	v.SetFs(f.fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, goldenerrors.WrapAndTrace(err, "could not read config", path)
	}
	return &ConfigStore{*f, v}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("export.target", "ALL")
	v.SetDefault("export.format", "XML")
	v.SetDefault("export.include", "Default")
	v.SetDefault("import.target", "ALL")
	v.SetDefault("import.shutdown_type", "Graceful")
	v.SetDefault("import.host_power_state", "On")
	v.SetDefault("connection.verify_ssl", false)
	v.SetDefault("connection.timeout", 30)
	v.SetDefault("connection.retries", 3)
	v.SetDefault("connection.poll_interval", 15)
	v.SetDefault("connection.job_timeout", 1800)
	v.SetDefault("connection.reboot_grace", 300)
	v.SetDefault("pipeline.steps", []string{"export", "import"})
}

// GetRunConfig resolves the loaded YAML plus env-var overrides into the
// fully concrete configuration an invocation runs against: credentials,
// option blocks, and groups with IP ranges expanded. Legacy single
// source/targets configs come back as one group named "default".
func (s ConfigStore) GetRunConfig() (*entity.RunConfig, error) {
	username := s.config.GetUsername()
	password := s.config.GetPassword()
	if username == "" || password == "" {
		return nil, goldenerrors.NewValidationError("IDRAC_USERNAME and IDRAC_PASSWORD environment variables are required")
	}

	conn := entity.ConnectionOptions{
		VerifySSL:    s.v.GetBool("connection.verify_ssl"),
		Timeout:      time.Duration(s.v.GetInt("connection.timeout")) * time.Second,
		Retries:      s.v.GetInt("connection.retries"),
		PollInterval: time.Duration(s.v.GetInt("connection.poll_interval")) * time.Second,
		JobTimeout:   time.Duration(s.v.GetInt("connection.job_timeout")) * time.Second,
		RebootGrace:  time.Duration(s.v.GetInt("connection.reboot_grace")) * time.Second,
	}

	creds := entity.Credentials{Username: username, Password: password}
	groups, err := s.resolveGroups(creds, conn.VerifySSL)
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}

	return &entity.RunConfig{
		Groups: groups,
		Export: entity.ExportOptions{
			Target:  s.v.GetString("export.target"),
			Format:  s.v.GetString("export.format"),
			Include: s.v.GetString("export.include"),
		},
		Import: entity.ImportOptions{
			Target:         s.v.GetString("import.target"),
			ShutdownType:   s.v.GetString("import.shutdown_type"),
			HostPowerState: s.v.GetString("import.host_power_state"),
		},
		Connection:  conn,
		Credentials: creds,
		Pipeline:    s.v.GetStringSlice("pipeline.steps"),
	}, nil
}

func (s ConfigStore) resolveGroups(creds entity.Credentials, verifySSL bool) ([]entity.Group, error) {
	endpoint := func(ip string) entity.HostEndpoint {
		return entity.HostEndpoint{IP: ip, Username: creds.Username, Password: creds.Password, VerifySSL: verifySSL}
	}

	if s.v.IsSet("groups") {
		raw := s.v.GetStringMap("groups")
		names := make([]string, 0, len(raw))
		for name := range raw {
			names = append(names, name)
		}
		sort.Strings(names)

		groups := make([]entity.Group, 0, len(names))
		for _, name := range names {
			sub := s.v.Sub("groups." + name)
			if sub == nil {
				return nil, goldenerrors.NewValidationError(fmt.Sprintf("group %q is not a mapping", name))
			}
			targets, err := ExpandTargets(sub.GetStringSlice("targets"))
			if err != nil {
				return nil, goldenerrors.WrapAndTrace(err, "group", name)
			}
			g := entity.Group{
				Name:         name,
				Source:       endpoint(sub.GetString("source_ip")),
				TemplatePath: sub.GetString("template"),
				Targets:      endpoints(targets, endpoint),
			}
			if g.TemplatePath == "" {
				g.TemplatePath = fmt.Sprintf("templates/golden_%s.xml", name)
			}
			groups = append(groups, g)
		}
		return groups, nil
	}

	// Legacy format: single source + flat target list, env overridable.
	sourceIP := s.v.GetString("source.ip")
	if override := s.config.GetSourceIPOverride(); override != "" {
		sourceIP = override
	}
	rawTargets := s.v.GetStringSlice("targets")
	if override := s.config.GetTargetIPsOverride(); override != "" {
		rawTargets = nil
		for _, ip := range strings.Split(override, ",") {
			if trimmed := strings.TrimSpace(ip); trimmed != "" {
				rawTargets = append(rawTargets, trimmed)
			}
		}
	}
	targets, err := ExpandTargets(rawTargets)
	if err != nil {
		return nil, goldenerrors.WrapAndTrace(err)
	}
	return []entity.Group{{
		Name:         "default",
		Source:       endpoint(sourceIP),
		TemplatePath: "templates/golden_default.xml",
		Targets:      endpoints(targets, endpoint),
	}}, nil
}

func endpoints(ips []string, f func(string) entity.HostEndpoint) []entity.HostEndpoint {
	return collections.Fmap(f, ips)
}

// SelectGroups filters to one named group, or returns all when name is
// empty. Unknown names surface the available group list.
func SelectGroups(groups []entity.Group, name string) ([]entity.Group, error) {
	if name == "" {
		return groups, nil
	}
	for _, g := range groups {
		if g.Name == name {
			return []entity.Group{g}, nil
		}
	}
	available := make([]string, 0, len(groups))
	for _, g := range groups {
		available = append(available, g.Name)
	}
	return nil, goldenerrors.NewValidationError(
		fmt.Sprintf("unknown group %q, available groups: %s", name, strings.Join(available, ", ")))
}

// ExpandTargets expands single IPs and dash ranges
// ("192.168.1.10-192.168.1.20") into individual IPv4 addresses.
func ExpandTargets(targets []string) ([]string, error) {
	expanded := []string{}
	for _, entry := range targets {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "-") && !strings.HasPrefix(entry, "-") {
			parts := strings.SplitN(entry, "-", 2)
			start, err := netip.ParseAddr(strings.TrimSpace(parts[0]))
			if err != nil {
				return nil, goldenerrors.NewValidationError(fmt.Sprintf("invalid IP range %q: %v", entry, err))
			}
			end, err := netip.ParseAddr(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, goldenerrors.NewValidationError(fmt.Sprintf("invalid IP range %q: %v", entry, err))
			}
			if !start.Is4() || !end.Is4() {
				return nil, goldenerrors.NewValidationError(fmt.Sprintf("invalid IP range %q: only IPv4 ranges are supported", entry))
			}
			if start.Compare(end) > 0 {
				return nil, goldenerrors.NewValidationError(fmt.Sprintf("invalid IP range %q: start > end", entry))
			}
			for cur := start; cur.Compare(end) <= 0; cur = cur.Next() {
				expanded = append(expanded, cur.String())
			}
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, goldenerrors.NewValidationError(fmt.Sprintf("invalid IP %q: %v", entry, err))
		}
		expanded = append(expanded, addr.String())
	}
	return expanded, nil
}
