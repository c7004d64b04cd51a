package rewrite

// typoDictionary maps common misspellings to their canonical form.
// Immutable process-wide data; checked before any other tier.
var typoDictionary = map[string]string{
	"aple":       "apple",
	"appel":      "apple",
	"samsun":     "samsung",
	"samsng":     "samsung",
	"iphne":      "iphone",
	"ifone":      "iphone",
	"iphon":      "iphone",
	"xiami":      "xiaomi",
	"xiomi":      "xiaomi",
	"huawai":     "huawei",
	"lenove":     "lenovo",
	"playstaton": "playstation",
	"nintndo":    "nintendo",
	"televison":  "television",
	"labtop":     "laptop",
	"lapto":      "laptop",
	"headphnes":  "headphones",
	"spekers":    "speakers",
	"kamera":     "camera",
	"tablit":     "tablet",
}

// knownBrands are brand tokens recognized by the pattern tier
var knownBrands = []string{
	"apple", "samsung", "xiaomi", "huawei", "sony", "lg", "lenovo",
	"dell", "hp", "asus", "acer", "nokia", "motorola", "oneplus",
	"google", "microsoft", "nintendo", "philips", "bosch", "siemens",
	"panasonic", "canon", "nikon", "jbl", "logitech", "adidas", "nike",
}

// knownCategories are category tokens recognized by the pattern tier
var knownCategories = []string{
	"phone", "smartphone", "laptop", "tablet", "tv", "television",
	"monitor", "camera", "headphones", "earbuds", "speaker", "speakers",
	"watch", "smartwatch", "console", "keyboard", "mouse", "printer",
	"fridge", "refrigerator", "washing machine", "dishwasher", "oven",
	"vacuum", "shoes", "sneakers", "jacket", "backpack",
}

// brandForTypo maps canonical typo corrections to a brand when the
// correction itself is a brand name.
var brandSet = func() map[string]bool {
	set := make(map[string]bool, len(knownBrands))
	for _, b := range knownBrands {
		set[b] = true
	}
	return set
}()

var categorySet = func() map[string]bool {
	set := make(map[string]bool, len(knownCategories))
	for _, c := range knownCategories {
		set[c] = true
	}
	return set
}()
