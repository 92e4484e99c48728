package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const DefaultAssetPrecision = 6

type AssetConfig struct {
	Symbol    string `yaml:"symbol"`
	Network   string `yaml:"network"`
	Precision int    `yaml:"precision"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

func LoadAssetConfig(assetsFile string) ([]AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	return ParseAssetConfig(data)
}

func ParseAssetConfig(data []byte) ([]AssetConfig, error) {
	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse assets: %w", err)
	}

	for i, asset := range config.Assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		if asset.Precision < 0 || asset.Precision > 18 {
			return nil, fmt.Errorf("asset %s has invalid precision %d", asset.Symbol, asset.Precision)
		}
	}

	return config.Assets, nil
}

// AssetCatalog is the set of tradable crypto/network pairs.
// A nil catalog accepts every pair.
type AssetCatalog struct {
	pairs     map[string]AssetConfig
	precision map[string]int
}

func NewAssetCatalog(assets []AssetConfig) *AssetCatalog {
	catalog := &AssetCatalog{
		pairs:     make(map[string]AssetConfig, len(assets)),
		precision: make(map[string]int, len(assets)),
	}
	for _, asset := range assets {
		symbol := strings.ToUpper(asset.Symbol)
		catalog.pairs[pairKey(symbol, asset.Network)] = asset
		if asset.Precision > catalog.precision[symbol] {
			catalog.precision[symbol] = asset.Precision
		}
	}
	return catalog
}

func (c *AssetCatalog) Supports(crypto, network string) bool {
	if c == nil || len(c.pairs) == 0 {
		return true
	}
	_, ok := c.pairs[pairKey(crypto, network)]
	return ok
}

// Precision returns the ledger precision of a symbol, DefaultAssetPrecision when unknown
func (c *AssetCatalog) Precision(crypto string) int {
	if c == nil {
		return DefaultAssetPrecision
	}
	if precision, ok := c.precision[strings.ToUpper(crypto)]; ok && precision > 0 {
		return precision
	}
	return DefaultAssetPrecision
}

// Symbols lists the catalog as SYMBOL-NETWORK strings
func (c *AssetCatalog) Symbols() []string {
	if c == nil {
		return nil
	}
	symbols := make([]string, 0, len(c.pairs))
	for _, asset := range c.pairs {
		symbols = append(symbols, fmt.Sprintf("%s-%s", asset.Symbol, asset.Network))
	}
	return symbols
}

func pairKey(crypto, network string) string {
	return strings.ToUpper(crypto) + "-" + strings.ToUpper(network)
}
