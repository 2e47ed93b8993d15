package schema

// Table names of the production schema.
const (
	Product            = "Product"
	ProductSubcategory = "ProductSubcategory"
	ProductCategory    = "ProductCategory"
	Location           = "Location"
	ProductInventory   = "ProductInventory"
	SalesOrderDetail   = "SalesOrderDetail"
	SalesOrderHeader   = "SalesOrderHeader"
	WorkOrder          = "WorkOrder"
	WorkOrderRouting   = "WorkOrderRouting"
	ScrapReason        = "ScrapReason"
	SalesTerritory     = "SalesTerritory"
)

func req(name, typ string) Field { return Field{Name: name, Type: typ, Required: true} }
func opt(name, typ string) Field { return Field{Name: name, Type: typ} }

// Contracts returns the contracts of the eleven production tables.
func Contracts() []Contract {
	return []Contract{
		{Name: Product, Fields: []Field{
			req("ProductID", TypeKey),
			req("Name", TypeText),
			req("StandardCost", TypeDecimal),
			req("ListPrice", TypeDecimal),
			req("SafetyStockLevel", TypeInt),
			req("ProductSubcategoryID", TypeKey),
			req("ProductModelID", TypeKey),
		}},
		{Name: ProductSubcategory, Fields: []Field{
			req("ProductSubcategoryID", TypeKey),
			req("Name", TypeText),
			req("ProductCategoryID", TypeKey),
		}},
		{Name: ProductCategory, Fields: []Field{
			req("ProductCategoryID", TypeKey),
			req("Name", TypeText),
		}},
		{Name: Location, Fields: []Field{
			req("LocationID", TypeKey),
			req("Name", TypeText),
		}},
		{Name: ProductInventory, Fields: []Field{
			req("ProductID", TypeKey),
			req("LocationID", TypeKey),
			req("Quantity", TypeInt),
			req("ModifiedDate", TypeDate),
		}},
		{Name: SalesOrderDetail, Fields: []Field{
			opt("SalesOrderID", TypeKey),
			req("ProductID", TypeKey),
			req("OrderQty", TypeInt),
			req("LineTotal", TypeDecimal),
		}},
		{Name: SalesOrderHeader, Fields: []Field{
			opt("SalesOrderID", TypeKey),
			req("TerritoryID", TypeKey),
			req("OrderDate", TypeDate),
			req("TotalDue", TypeDecimal),
		}},
		{Name: WorkOrder, Fields: []Field{
			opt("WorkOrderID", TypeKey),
			req("ProductID", TypeKey),
			req("OrderQty", TypeInt),
			req("StockedQty", TypeInt),
			req("ScrappedQty", TypeInt),
			req("ScrapReasonID", TypeKey),
			req("StartDate", TypeDate),
			req("EndDate", TypeDate),
			req("DueDate", TypeDate),
		}},
		{Name: WorkOrderRouting, Fields: []Field{
			req("WorkOrderID", TypeKey),
			req("ProductID", TypeKey),
			req("LocationID", TypeKey),
			req("ActualResourceHrs", TypeDecimal),
			req("ActualCost", TypeDecimal),
			req("ScheduledEndDate", TypeDate),
			req("ActualEndDate", TypeDate),
		}},
		{Name: ScrapReason, Fields: []Field{
			req("ScrapReasonID", TypeKey),
			req("Name", TypeText),
		}},
		{Name: SalesTerritory, Fields: []Field{
			req("TerritoryID", TypeKey),
			req("Name", TypeText),
			req("CountryRegionCode", TypeText),
			req("SalesYTD", TypeDecimal),
			req("SalesLastYear", TypeDecimal),
		}},
	}
}

// Lookup returns the contract for name among Contracts.
func Lookup(name string) (Contract, bool) {
	for _, c := range Contracts() {
		if c.Name == name {
			return c, true
		}
	}
	return Contract{}, false
}
