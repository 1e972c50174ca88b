package guardrail

import "mercator-hq/overseer/pkg/governance/predicate"

// Built-in guardrail ids.
const (
	BuiltinProductionExecution = "builtin-production-execution"
	BuiltinDestructiveAction   = "builtin-destructive-action"
	BuiltinDatabaseChange      = "builtin-database-modification"
	BuiltinPIIAccess           = "builtin-pii-access"
	BuiltinContentSafety       = "builtin-content-safety"
	BuiltinTokenBudget         = "builtin-token-budget"
	BuiltinRestrictedModel     = "builtin-restricted-model"
	BuiltinGlobalScope         = "builtin-global-scope"
)

// Builtins returns the guardrails seeded at bootstrap. Each call returns fresh
// definitions.
func Builtins() []Definition {
	return []Definition{
		{
			ID:            BuiltinProductionExecution,
			Name:          "Production Execution Guard",
			NameAr:        "حارس التنفيذ في بيئة الإنتاج",
			Description:   "Requires human review before commands are executed in production.",
			DescriptionAr: "يتطلب مراجعة بشرية قبل تنفيذ الأوامر في بيئة الإنتاج.",
			Condition:     "action.type == execute AND environment == production",
			ConditionAr:   "تنفيذ أوامر في بيئة الإنتاج",
			Category:      CategoryAction,
			Severity:      SeverityBlock,
			Predicate: predicate.And(predicate.TypeActionType,
				predicate.Leaf(predicate.TypeActionType, "action.type", predicate.OperatorEquals, "execute"),
				predicate.Leaf(predicate.TypeEnvironment, "environment.name", predicate.OperatorEquals, "production"),
			),
		},
		{
			ID:            BuiltinDestructiveAction,
			Name:          "Destructive Action Guard",
			NameAr:        "حارس الإجراءات التدميرية",
			Description:   "Escalates any action that deletes data or resources.",
			DescriptionAr: "يصعّد أي إجراء يحذف البيانات أو الموارد.",
			Condition:     "action.type == delete",
			ConditionAr:   "إجراء حذف",
			Category:      CategoryAction,
			Severity:      SeverityBlock,
			Predicate:     predicate.Leaf(predicate.TypeActionType, "action.type", predicate.OperatorEquals, "delete"),
		},
		{
			ID:            BuiltinDatabaseChange,
			Name:          "Database Modification Guard",
			NameAr:        "حارس تعديل قاعدة البيانات",
			Description:   "Warns on schema or database modifications.",
			DescriptionAr: "يحذّر عند تعديل مخطط أو قاعدة البيانات.",
			Condition:     "action.type == db_modify",
			ConditionAr:   "تعديل قاعدة البيانات",
			Category:      CategoryDataAccess,
			Severity:      SeverityWarn,
			Predicate:     predicate.Leaf(predicate.TypeActionType, "action.type", predicate.OperatorEquals, "db_modify"),
		},
		{
			ID:            BuiltinPIIAccess,
			Name:          "PII Access Control",
			NameAr:        "التحكم في الوصول إلى البيانات الشخصية",
			Description:   "Blocks access to personal data by principals without PII access.",
			DescriptionAr: "يمنع الوصول إلى البيانات الشخصية لمن لا يملك صلاحية ذلك.",
			Condition:     "data.type == pii AND NOT user.piiAccess",
			ConditionAr:   "الوصول إلى بيانات شخصية دون صلاحية",
			Category:      CategoryDataAccess,
			Severity:      SeverityBlock,
			Predicate: predicate.And(predicate.TypeDataType,
				predicate.Leaf(predicate.TypeDataType, "data.type", predicate.OperatorEquals, "pii"),
				predicate.Not(predicate.TypePermissionCheck,
					predicate.Leaf(predicate.TypePermissionCheck, "user.piiAccess", predicate.OperatorEquals, true)),
			),
		},
		{
			ID:            BuiltinContentSafety,
			Name:          "Content Safety Filter",
			NameAr:        "مرشح أمان المحتوى",
			Description:   "Blocks actions whose text matches unsafe content patterns.",
			DescriptionAr: "يمنع الإجراءات التي يطابق نصها أنماط محتوى غير آمن.",
			Condition:     "safety.score < 0.7",
			ConditionAr:   "درجة الأمان أقل من 0.7",
			Category:      CategoryContent,
			Severity:      SeverityBlock,
			Predicate:     predicate.Leaf(predicate.TypeSafetyScore, "safety.score", predicate.OperatorLessThan, 0.7),
		},
		{
			ID:            BuiltinTokenBudget,
			Name:          "Token Budget Guard",
			NameAr:        "حارس ميزانية الرموز",
			Description:   "Warns when token usage exceeds 80% of the limit.",
			DescriptionAr: "يحذّر عندما يتجاوز استخدام الرموز 80% من الحد.",
			Condition:     "tokens.used > tokens.limit * 0.8",
			ConditionAr:   "استخدام الرموز يتجاوز 80% من الحد",
			Category:      CategoryResource,
			Severity:      SeverityWarn,
			Predicate:     predicate.Leaf(predicate.TypeTokenThreshold, "tokens.ratio", predicate.OperatorGreaterThan, 0.8),
		},
		{
			ID:            BuiltinRestrictedModel,
			Name:          "Restricted Model Guard",
			NameAr:        "حارس النماذج المقيدة",
			Description:   "Blocks actions proposed by models on the restricted list.",
			DescriptionAr: "يمنع الإجراءات المقترحة من نماذج مدرجة في القائمة المقيدة.",
			Condition:     "model.restricted == true",
			ConditionAr:   "استخدام نموذج مقيد",
			Category:      CategorySecurity,
			Severity:      SeverityBlock,
			Predicate:     predicate.Leaf(predicate.TypeModelRestricted, "model.restricted", predicate.OperatorEquals, true),
		},
		{
			ID:            BuiltinGlobalScope,
			Name:          "Global Scope Guard",
			NameAr:        "حارس النطاق العام",
			Description:   "Warns when a non-owner proposes a platform-wide change.",
			DescriptionAr: "يحذّر عندما يقترح مستخدم غير المالك تغييرًا على مستوى المنصة.",
			Condition:     "scope.level == global AND NOT user.isOwner",
			ConditionAr:   "تغيير على مستوى المنصة من غير المالك",
			Category:      CategoryScope,
			Severity:      SeverityWarn,
			Predicate: predicate.And(predicate.TypeScopeBoundary,
				predicate.Leaf(predicate.TypeScopeBoundary, "scope.level", predicate.OperatorEquals, "global"),
				predicate.Not(predicate.TypeRoleCheck,
					predicate.Leaf(predicate.TypeRoleCheck, "user.isOwner", predicate.OperatorEquals, true)),
			),
		},
	}
}
