package test

var (
	// TestKeys - test data
	TestKeys [][]byte = [][]byte{[]byte("Key1"), []byte("Key2"), []byte("Key3"), []byte("Key4"), []byte("Key5")}

	// TestValues - test data
	TestValues [][]byte = [][]byte{[]byte("Value1"), []byte("Value2"), []byte("Value3"), []byte("Value4"), []byte("Value5")}

	// TestUpdatedValues - test data
	TestUpdatedValues [][]byte = [][]byte{[]byte("UpdatedValue1"), []byte("UpdatedValue2"), []byte("UpdatedValue3"), []byte("UpdatedValue4"), []byte("UpdatedValue5")}

	// TestUIDs are the uids created by the nested thread reproduction, in creation order.
	TestUIDs []string = []string{"a", "b", "c"}

	// TestLabel is the label carried by the reproduction nodes.
	TestLabel = "Test"
)
