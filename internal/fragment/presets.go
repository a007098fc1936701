package fragment

import (
	"fmt"

	"github.com/cliffyan/gd-images/internal/config"
)

const galleryStyle = `
    #golden-images .image-list {
        display: grid;
        gap: 10px;
        margin: 0;
        justify-items: center;
        align-items: start;
        align-content: start;
        justify-content: space-between;
        grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
    }
    #golden-images .image-list img {
        margin: 0 auto;
        max-width: 100%;
        width: 100%;
        border-radius: 5px;
        display: block;
        max-height: 95vh;
        object-fit: contain;
    }
`

const gridStyle = `
    .image-grid {
        display: grid;
        grid-template-columns: repeat(auto-fill, minmax(200px, 1fr));
        gap: 10px;
        padding: 10px;
    }
    .image-card {
        border: 1px solid #ddd;
        border-radius: 4px;
        padding: 5px;
        background: white;
    }
    .image-card img {
        width: 100%;
        height: 150px;
        object-fit: cover;
        border-radius: 2px;
    }
    .image-title {
        font-size: 12px;
        color: #666;
        margin-top: 5px;
        overflow: hidden;
        text-overflow: ellipsis;
        white-space: nowrap;
    }
    .attribution {
        font-size: 10px;
        color: #999;
        margin-top: 10px;
        text-align: center;
    }
`

// 所有预设共用的外层标识，用户 CSS 依赖这些 id 和 class
const (
	rootID    = "golden-images"
	sectionID = "image-grid"
	listClass = "image-list"
)

// presets 内置模板
// gallery 和 plain 对应抓取 Bing 的两个版本（带/不带日文字体 class），grid 对应 Custom Search API 的版本。
var presets = map[string]Template{
	"gallery": {
		ID:           rootID,
		SectionID:    sectionID,
		SectionClass: "japanese_gothic focus",
		Lang:         "ja",
		ListClass:    listClass,
		Style:        galleryStyle,
		MaxItems:     5,
	},
	"plain": {
		ID:        rootID,
		SectionID: sectionID,
		ListClass: listClass,
		MaxItems:  5,
	},
	"grid": {
		ID:               rootID,
		SectionID:        sectionID,
		ListClass:        "image-grid",
		PlaceholderTitle: "Image",
		Captions:         true,
		Attribution:      "Images from Google Custom Search",
		Style:            gridStyle,
		MaxItems:         10,
	},
}

// Preset 返回内置模板
func Preset(name string) (Template, error) {
	t, ok := presets[name]
	if !ok {
		return Template{}, fmt.Errorf("unknown fragment template: %s", name)
	}
	return t, nil
}

// FromConfig 以预设为基础应用配置中的覆盖项
// maxItems > 0 时覆盖模板的条数上限。
func FromConfig(cfg config.FragmentConfig, maxItems int) (Template, error) {
	t, err := Preset(cfg.Template)
	if err != nil {
		return Template{}, err
	}

	if cfg.ID != "" {
		t.ID = cfg.ID
	}
	if cfg.SectionID != nil {
		t.SectionID = *cfg.SectionID
	}
	if cfg.SectionClass != nil {
		t.SectionClass = *cfg.SectionClass
	}
	if cfg.Lang != nil {
		t.Lang = *cfg.Lang
	}
	if cfg.ListClass != "" {
		t.ListClass = cfg.ListClass
	}
	if cfg.PlaceholderTitle != nil {
		t.PlaceholderTitle = *cfg.PlaceholderTitle
	}
	if cfg.Captions != nil {
		t.Captions = *cfg.Captions
	}
	if cfg.Links != nil {
		t.Links = *cfg.Links
	}
	if cfg.Attribution != nil {
		t.Attribution = *cfg.Attribution
	}
	if cfg.Style != nil {
		t.Style = *cfg.Style
	}
	if maxItems > 0 {
		t.MaxItems = maxItems
	}

	return t, nil
}
