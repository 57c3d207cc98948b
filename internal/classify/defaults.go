package classify

func defaultRuleSet() *RuleSet {
	return &RuleSet{
		Vendors: []string{
			"ASML", "Applied Materials", "Lam Research", "KLA", "Tokyo Electron",
			"Advantest", "Teradyne", "Entegris", "MKS Instruments",
			"Synopsys", "Cadence", "Siemens EDA",
			"TSMC", "Samsung Foundry", "Intel", "UMC", "GlobalFoundries", "SMIC",
			"ASE Technology", "Amkor", "JCET",
			"NVIDIA", "AMD", "Qualcomm", "Broadcom", "MediaTek", "Marvell",
			"Micron", "SK hynix", "Kioxia", "Western Digital",
			"Texas Instruments", "Analog Devices", "STMicroelectronics", "NXP",
			"Infineon", "Microchip", "Renesas", "onsemi",
		},
		Aliases: map[string][]string{
			"Tokyo Electron":     {"TEL"},
			"Lam Research":       {"Lam"},
			"ASML":               {"ASML Holding", "ASML Holdings"},
			"Siemens EDA":        {"Mentor Graphics"},
			"TSMC":               {"Taiwan Semiconductor", "Taiwan Semiconductor Manufacturing"},
			"GlobalFoundries":    {"Global Foundries", "GF"},
			"ASE Technology":     {"ASE"},
			"SK hynix":           {"SK Hynix"},
			"onsemi":             {"ON Semiconductor"},
			"STMicroelectronics": {"STMicro"},
		},
		RiskTypes: []string{
			"geopolitical", "material", "vendor", "logistics", "financial",
			"regulatory", "cybersecurity", "workforce", "environmental",
			"capacity", "unclassified",
		},
		RiskKeywords: map[string][]string{
			"geopolitical":  {"export control", "sanction", "tariff", "embargo", "trade war"},
			"material":      {"shortage", "raw material", "substrate", "photoresist"},
			"logistics":     {"logistics", "port delay", "shipping", "lead time", "backlog"},
			"financial":     {"downgrade", "guidance cut", "profit warning", "misses estimates", "liquidity"},
			"regulatory":    {"antitrust", "lawsuit", "litigation", "regulator", "fine", "probe", "investigation"},
			"cybersecurity": {"ransomware", "breach", "cyberattack", "hack"},
			"workforce":     {"strike", "walkout", "layoff", "labor dispute"},
			"environmental": {"earthquake", "flood", "typhoon", "fire", "drought"},
			"capacity":      {"shutdown", "halt production", "line down", "fab outage", "power outage"},
		},
		Model: Model{
			Precedence: []string{
				"geopolitical", "capacity", "cybersecurity", "regulatory",
				"workforce", "environmental", "material", "logistics",
				"financial", "vendor",
			},
			Weights: map[string]float64{
				"geopolitical":  1.0,
				"capacity":      0.9,
				"cybersecurity": 0.9,
				"regulatory":    0.8,
				"workforce":     0.7,
				"environmental": 0.7,
				"material":      0.6,
				"logistics":     0.6,
				"financial":     0.5,
				"vendor":        0.3,
			},
			SeverityBoost: map[string][]string{
				"major": {"halt", "shutdown", "ban", "explosion", "critical"},
				"minor": {"delay", "warning", "concern"},
			},
			SeverityWeights: map[string]float64{
				"major": 0.2,
				"minor": 0.05,
			},
		},
	}
}

// TagRule is one row of the lightweight tagging table applied to untagged
// events during the ingest cycle.
type TagRule struct {
	Pattern  string
	RiskType string
	Severity string
}

func defaultTagRules() []TagRule {
	return []TagRule{
		{`\b(export control|sanction|tariff|embargo|bis|itar|geopolitic|licen[cs]e ban)\b`, "Export/Geo", "Critical"},
		{`\b(earthquake|flood|typhoon|fire|explosion|outage|power cut|facility shutdown)\b`, "Operations/BCP", "High"},
		{`\b(recall|yield issue|defect|quality problem|rma|field failure)\b`, "Product/Quality", "High"},
		{`\b(antitrust|lawsuit|litigation|regulator|fine|sec|doj|probe|investigation)\b`, "Legal/Compliance", "High"},
		{`\b(shortage|supply disruption|backlog|lead[-\s]?time|logistics|port delay)\b`, "Supply Chain", "High"},
		{`\b(downgrade|guidance cut|profit warning|misses estimates|liquidity)\b`, "Financial", "Medium"},
	}
}
