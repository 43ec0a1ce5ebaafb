package achievement

import "github.com/cosnor/winged/internal/domain/model"

func def(name, desc string, t model.AchievementType, tier model.Tier, base, req int64) model.AchievementDefinition {
	return model.AchievementDefinition{
		Name:             name,
		Description:      desc,
		Type:             t,
		Tier:             tier,
		BasePoints:       base,
		RequirementValue: req,
	}
}

// DefaultDefinitions returns the built-in catalog.
func DefaultDefinitions() []model.AchievementDefinition {
	defs := []model.AchievementDefinition{
		def("First Flight", "Discover your first species", model.TypeDiscoveryCount, model.TierBronze, 10, 1),
		def("Fledgling Birder", "Discover 10 species", model.TypeDiscoveryCount, model.TierBronze, 25, 10),
		def("Keen Eye", "Discover 25 species", model.TypeDiscoveryCount, model.TierSilver, 50, 25),
		def("Seasoned Birder", "Discover 50 species", model.TypeDiscoveryCount, model.TierGold, 100, 50),
		def("Century Lister", "Discover 100 species", model.TypeDiscoveryCount, model.TierPlatinum, 200, 100),
		def("Master Ornithologist", "Discover 250 species", model.TypeDiscoveryCount, model.TierDiamond, 400, 250),

		def("Early Riser", "Keep a 3 day discovery streak", model.TypeStreak, model.TierBronze, 15, 3),
		def("Dedicated Watcher", "Keep a 7 day discovery streak", model.TypeStreak, model.TierSilver, 40, 7),
		def("Dawn Chorus", "Keep a 30 day discovery streak", model.TypeStreak, model.TierGold, 150, 30),
		def("Migration Season", "Keep a 100 day discovery streak", model.TypeStreak, model.TierDiamond, 500, 100),

		def("Rare Find", "Discover a rare species", model.TypeRarity, model.TierSilver, 30, 1),
		def("Rarity Hunter", "Discover 5 rare species", model.TypeRarity, model.TierGold, 100, 5),
		def("Legend Seeker", "Discover 20 rare species", model.TypeRarity, model.TierPlatinum, 250, 20),

		def("Collector", "Complete a species collection", model.TypeCollection, model.TierSilver, 50, 1),
		def("Curator", "Complete 3 species collections", model.TypeCollection, model.TierGold, 150, 3),

		def("Sharp Ears", "Make 10 high-confidence identifications", model.TypeExpertise, model.TierBronze, 20, 10),
		def("Expert Identifier", "Make 100 high-confidence identifications", model.TypeExpertise, model.TierGold, 120, 100),

		def("Explorer", "Discover birds at 5 distinct locations", model.TypeLocation, model.TierBronze, 20, 5),
		def("Globetrotter", "Discover birds at 25 distinct locations", model.TypeLocation, model.TierGold, 120, 25),
	}

	hidden := def("Night Owl", "A secret awaits the patient birder", model.TypeStreak, model.TierPlatinum, 100, 14)
	hidden.IsHidden = true

	repeat := def("Trailblazer", "Earned again for every 50 high-confidence identifications", model.TypeExpertise, model.TierSilver, 30, 50)
	repeat.IsRepeatable = true

	return append(defs, hidden, repeat)
}
