package bot

const (
	menuCatalog = "Catalog"
	menuCart    = "Cart"
	menuOrders  = "My orders"
	menuInfo    = "Info"
	menuContact = "Contact"
	menuAdmin   = "Admin panel"
	menuCancel  = "Cancel"

	cmdStart  = "start"
	cmdCancel = "cancel"
)

const (
	msgSomethingWrong  = "Something went wrong, please try again."
	msgUnknownAction   = "Unknown action."
	msgUnknownCommand  = "Unknown command. Use /start or /cancel."
	msgChooseFromMenu  = "Please choose from the menu."
	msgCancelled       = "Cancelled."
	msgImageNotAllowed = "Image not accepted, please use the menu."
	msgImageIgnored    = "There is no step waiting for an image right now."

	msgAskName        = "Welcome! To register, please enter your name:"
	msgNameTooShort   = "The name is too short. Please enter it again:"
	msgAskPhone       = "Please share your phone number using the button below."
	msgRegistered     = "You are registered!"
	msgRegisterFirst  = "Please register first: send /start."
	msgAskQuantity    = "Enter the quantity for %s:"
	msgBadQuantity    = "The quantity must be a positive whole number. Try again, or /cancel."
	msgNoPendingItem  = "There is no product waiting for a quantity. Please pick it again."
	msgAddedToCart    = "Added to cart: %s x %d."
	msgCartCleared    = "Cart cleared."
	msgCartEmpty      = "Your cart is empty."
	msgOrderAccepted  = "Order #%d accepted! Total: %s. We will contact you soon."
	msgProductMissing = "This product is no longer available."

	msgAskVariantMode   = "Does the product have variants (sizes)?"
	msgAskProductName   = "Enter the product name:"
	msgAskPrice         = "Enter the price (digits only), e.g. 120000:"
	msgBadPrice         = "The price must contain digits only, e.g. 120000. Try again:"
	msgAskVariants      = "Enter the variants separated by commas, e.g. 10x10, 20x20. Send - for none:"
	msgAskImage         = "Send the product image:"
	msgUseButtons       = "Please choose one of the options above."
	msgDraftIncomplete  = "The product details are incomplete. Please start again."
	msgProductAdded     = "Product added: #%d %s."
	msgNoEditTarget     = "No product is selected for editing. Please choose it again."
	msgAskNewName       = "Send the new name:"
	msgAskNewPrice      = "Send the new price (digits only):"
	msgAskNewVariants   = "Send the new variants separated by commas. Send - to remove all variants:"
	msgAskNewImage      = "Send the new image:"
	msgFieldUpdated     = "The %s has been updated."
	msgProductDeleted   = "Product deleted."
	msgAskBroadcast     = "Send the broadcast text, or an image with a caption. /cancel to abort."
	msgBroadcastStarted = "Broadcast started for %d users. You will get the result when it finishes."
	msgStepExpired      = "This step is no longer active. Please start again."
	msgNotEnoughOrders  = "Not enough orders for a chart yet."
	msgCatalogEmpty     = "There are no products yet."
	msgNoOrders         = "You have no orders yet."
	msgInfo             = "Building materials store.\nCatalog: browse products\nCart: review and confirm your order\nMy orders: order history\nContact: reach the store"
	msgContact          = "Contact us: %s"
	msgWelcomeBack      = "Welcome!"
	msgAdminWelcome     = "You are signed in as administrator. Use the menu below."
)
