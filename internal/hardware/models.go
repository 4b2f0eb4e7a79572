package hardware

// modelTiers maps known model identifiers to tiers. Anything absent resolves
// to FallbackTier.
var modelTiers = buildModelTiers(map[Tier][]string{
	Tier0: {
		"iPhone2,1", "iPhone3,1", "iPhone3,2", "iPhone3,3",
		"iPad1,1", "iPad1,2",
		"iPod3,1", "iPod4,1",
	},
	Tier1: {
		"iPhone4,1",
		"iPad2,1", "iPad2,2", "iPad2,3", "iPad2,4",
		"iPad3,1", "iPad3,2", "iPad3,3",
		"iPod5,1",
	},
	Tier2: {
		"iPhone5,1", "iPhone5,2", "iPhone5,3", "iPhone5,4",
		"iPad3,4", "iPad3,5", "iPad3,6",
	},
	Tier3: {
		"iPhone6,1", "iPhone6,2", "iPhone7,1", "iPhone7,2",
		"iPad4,1", "iPad4,2", "iPad4,3",
		"iPad5,1", "iPad5,2",
		"iPad6,3", "iPad6,4", "iPad6,7", "iPad6,8",
		"iPod7,1",
	},
	Tier4: {
		"iPhone8,1", "iPhone8,2", "iPhone8,4",
		"iPhone9,1", "iPhone9,2", "iPhone9,3", "iPhone9,4",
		"iPhone10,1", "iPhone10,2", "iPhone10,3", "iPhone10,4", "iPhone10,5", "iPhone10,6",
		"iPad7,1", "iPad7,2", "iPad7,3", "iPad7,4", "iPad7,5", "iPad7,6", "iPad7,11", "iPad7,12",
		"iPad8,1", "iPad8,2", "iPad8,3", "iPad8,4", "iPad8,5", "iPad8,6", "iPad8,7", "iPad8,8",
		"iPad8,9", "iPad8,10", "iPad8,11", "iPad8,12",
		"iPod9,1",
	},
	Tier5: {
		"iPhone11,2", "iPhone11,4", "iPhone11,6", "iPhone11,8",
		"iPhone12,1", "iPhone12,3", "iPhone12,5", "iPhone12,8",
		"iPhone13,1", "iPhone13,2", "iPhone13,3", "iPhone13,4",
		"iPhone14,2", "iPhone14,3", "iPhone14,4", "iPhone14,5", "iPhone14,6", "iPhone14,7", "iPhone14,8",
		"iPhone15,2", "iPhone15,3", "iPhone15,4",
	},
})

func buildModelTiers(byTier map[Tier][]string) map[string]Tier {
	m := make(map[string]Tier)
	for tier, models := range byTier {
		for _, model := range models {
			m[model] = tier
		}
	}
	return m
}
