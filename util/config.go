package util

import (
	"encoding/xml"
	"os"
)

// LoadConfig 从xml文件读配置
func LoadConfig(filename string, v interface{}) error {
	contents, err := os.ReadFile(filename)
	if nil != err {
		return err
	}
	return xml.Unmarshal(contents, v)
}

// SaveConfig 把配置写回xml文件
func SaveConfig(filename string, v interface{}) error {
	contents, err := xml.MarshalIndent(v, "  ", "    ")
	if nil != err {
		return err
	}
	return os.WriteFile(filename, contents, 0644)
}
