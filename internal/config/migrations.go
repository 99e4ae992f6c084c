package config

import "tools.zach/dev/keycap/internal/migrate"

func init() {
	migrate.Config.Register(migrate.Migration{
		Version:     2,
		Description: "nest border settings and rename vignette_width to fade_width",
		Upgrade:     migrate.TOML(2, upgradeV2),
	})
}

// v1BorderKeys maps the flat v1 icon keys to their v2 [border] names.
var v1BorderKeys = map[string]string{
	"border_color":     "color",
	"border_thickness": "thickness",
	"border_radius":    "radius",
	"vignette_width":   "fade_width",
}

// upgradeV2 rewrites the defaults table and every icon table.
func upgradeV2(doc migrate.Document) error {
	if t := migrate.Table(doc, "defaults"); t != nil {
		upgradeIconV2(t)
	}
	for _, v := range migrate.Table(doc, "icons") {
		if t, ok := v.(map[string]any); ok {
			upgradeIconV2(t)
		}
	}
	return nil
}

// upgradeIconV2 moves v1's flat border keys (border = "solid",
// border_color, ..., vignette_width) into a border table and renames
// bg_color to background.
func upgradeIconV2(t migrate.Document) {
	migrate.Rename(t, "bg_color", "background")

	b, isTable := t["border"].(map[string]any)
	if !isTable {
		b = migrate.Document{}
		if style, ok := t["border"].(string); ok {
			b["style"] = style
		}
	}
	for from, to := range v1BorderKeys {
		if v, ok := t[from]; ok {
			delete(t, from)
			if _, exists := b[to]; !exists {
				b[to] = v
			}
		}
	}
	migrate.Rename(b, "vignette_width", "fade_width")

	if len(b) > 0 {
		t["border"] = b
	} else {
		delete(t, "border")
	}
}
