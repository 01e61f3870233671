package ast

type (
	FileID    uint32
	ItemID    uint32
	StmtID    uint32
	ExprID    uint32
	PatternID uint32
	TypeID    uint32
	ParamID   uint32
	TypeParamID uint32
	FieldID     uint32
	VariantID   uint32
	ArmID       uint32
	SpecClauseID uint32
	AttrID      uint32
)

const (
	NoFileID       FileID       = 0
	NoItemID       ItemID       = 0
	NoStmtID       StmtID       = 0
	NoExprID       ExprID       = 0
	NoPatternID    PatternID    = 0
	NoTypeID       TypeID       = 0
	NoParamID      ParamID      = 0
	NoTypeParamID  TypeParamID  = 0
	NoFieldID      FieldID      = 0
	NoVariantID    VariantID    = 0
	NoArmID        ArmID        = 0
	NoSpecClauseID SpecClauseID = 0
	NoAttrID       AttrID       = 0
)

func (id ExprID) IsValid() bool    { return id != NoExprID }
func (id StmtID) IsValid() bool    { return id != NoStmtID }
func (id TypeID) IsValid() bool    { return id != NoTypeID }
func (id PatternID) IsValid() bool { return id != NoPatternID }
func (id ItemID) IsValid() bool    { return id != NoItemID }
