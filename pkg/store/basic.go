package store

import "github.com/goldenfleet/goldenctl/pkg/config"

type BasicStore struct {
	config config.ConstantsConfig
}

func NewBasicStore() *BasicStore {
	return &BasicStore{config: *config.GlobalConfig}
}
