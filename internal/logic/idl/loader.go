package idl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"anchor-explorer-sol/internal/types"

	"gopkg.in/yaml.v3"
)

// Entry 是从本地加载得到的一条 program → IDL 映射
type Entry struct {
	ProgramID types.Pubkey
	Idl       *Idl
	Source    string
}

// registryFile 对应 programs.yaml：
//
//	programs:
//	  - id: whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc
//	    idl: idls/whirlpool.json
//	    name: whirlpool
type registryFile struct {
	Programs []registryEntry `yaml:"programs"`
}

type registryEntry struct {
	ID   string `yaml:"id"`
	Idl  string `yaml:"idl"`
	Name string `yaml:"name"` // 可选，覆盖 IDL 中的程序名
}

// ParseFile 读取并解析单个 IDL 文件
func ParseFile(path string) (*Idl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// LoadDir 加载目录下所有 *.json IDL。
// program ID 优先取 IDL 的 address 字段，其次取文件名（<programId>.json）。
func LoadDir(dir string) ([]Entry, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(files))
	for _, file := range files {
		parsed, err := ParseFile(file)
		if err != nil {
			return nil, err
		}
		id, err := resolveProgramID(parsed, strings.TrimSuffix(filepath.Base(file), ".json"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		entries = append(entries, Entry{ProgramID: id, Idl: parsed, Source: file})
	}
	return entries, nil
}

// LoadRegistryFile 加载 yaml 注册表，idl 路径相对于注册表文件所在目录
func LoadRegistryFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	base := filepath.Dir(path)
	entries := make([]Entry, 0, len(reg.Programs))
	for i, p := range reg.Programs {
		if p.ID == "" || p.Idl == "" {
			return nil, fmt.Errorf("%s: programs[%d] requires id and idl", path, i)
		}
		id, err := types.TryPubkeyFromBase58(p.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: programs[%d] invalid id: %w", path, i, err)
		}
		file := p.Idl
		if !filepath.IsAbs(file) {
			file = filepath.Join(base, file)
		}
		parsed, err := ParseFile(file)
		if err != nil {
			return nil, err
		}
		if p.Name != "" {
			parsed.Name = p.Name
		}
		entries = append(entries, Entry{ProgramID: id, Idl: parsed, Source: file})
	}
	return entries, nil
}

func resolveProgramID(parsed *Idl, fallback string) (types.Pubkey, error) {
	if parsed.Address != "" {
		return types.TryPubkeyFromBase58(parsed.Address)
	}
	return types.TryPubkeyFromBase58(fallback)
}
