// Package explore drives randomized walks over the metadata hierarchy:
// meta-type, object, predefined listing, predefined item.
package explore

// Tool names, in the order the statistics table reports them.
const (
	ToolListMetadataObjects  = "list_metadata_objects"
	ToolGetMetadataStructure = "get_metadata_structure"
	ToolListPredefinedData   = "list_predefined_data"
	ToolGetPredefinedData    = "get_predefined_data"
)

// Methods is the canonical tool order.
var Methods = []string{
	ToolListMetadataObjects,
	ToolGetMetadataStructure,
	ToolListPredefinedData,
	ToolGetPredefinedData,
}

// MetaTypes is the full catalog of metadata types.
var MetaTypes = []string{
	"Catalogs", "Documents", "InformationRegisters", "AccumulationRegisters",
	"AccountingRegisters", "CalculationRegisters", "ChartsOfCharacteristicTypes",
	"ChartsOfAccounts", "ChartsOfCalculationTypes", "BusinessProcesses", "Tasks",
	"ExchangePlans", "FilterCriteria", "Reports", "DataProcessors", "Enums",
	"CommonModules", "SessionParameters", "CommonTemplates", "CommonPictures",
	"XDTOPackages", "WebServices", "HTTPServices", "WSReferences", "Styles",
	"Languages", "FunctionalOptions", "FunctionalOptionsParameters", "DefinedTypes",
	"CommonAttributes", "CommonCommands", "CommandGroups", "Constants",
	"CommonForms", "Roles", "Subsystems", "EventSubscriptions", "ScheduledJobs",
	"SettingsStorages", "Sequences", "DocumentJournals", "ExternalDataSources",
	"Interfaces",
}

// PredefinedTypes are the meta-types that carry predefined data.
var PredefinedTypes = []string{
	"Catalogs",
	"ChartsOfCharacteristicTypes",
	"ChartsOfAccounts",
	"ChartsOfCalculationTypes",
}

// NameMasks are the object name masks sampled for listings.
var NameMasks = []string{"", "Номенклатура", "Документ"}

// PredefinedMasks are the masks sampled for predefined listings.
var PredefinedMasks = []string{"", "Основной", "Дополнительный"}

// PredefinedMarker prefixes a predefined item name in free-text listings.
const PredefinedMarker = "Имя: '"
